package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHostFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadTemperature(t *testing.T) {
	root := t.TempDir()
	c := &SystemCollector{hostRoot: root}

	writeHostFile(t, root, thermalZonePath, "48256\n")
	assert.InDelta(t, 48.256, c.readTemperature(), 0.001)
}

func TestReadTemperatureUnavailable(t *testing.T) {
	c := &SystemCollector{hostRoot: t.TempDir()}

	assert.Equal(t, 0.0, c.readTemperature())
}

func TestReadTemperatureMalformed(t *testing.T) {
	root := t.TempDir()
	c := &SystemCollector{hostRoot: root}

	writeHostFile(t, root, thermalZonePath, "not-a-number\n")
	assert.Equal(t, 0.0, c.readTemperature())
}

func TestReadUptime(t *testing.T) {
	root := t.TempDir()
	c := &SystemCollector{hostRoot: root}

	writeHostFile(t, root, uptimePath, "123456.78 4096.00\n")
	assert.Equal(t, int64(123456), c.readUptime())
}

func TestReadUptimeMalformed(t *testing.T) {
	root := t.TempDir()
	c := &SystemCollector{hostRoot: root}

	writeHostFile(t, root, uptimePath, "garbage\n")
	assert.Equal(t, int64(0), c.readUptime())
}

func TestReadHostnameFromHostMount(t *testing.T) {
	root := t.TempDir()
	c := &SystemCollector{hostRoot: root}

	writeHostFile(t, root, hostnamePath, "pi-server\n")
	assert.Equal(t, "pi-server", c.readHostname("container-host"))
}

func TestReadHostnameFallback(t *testing.T) {
	c := &SystemCollector{hostRoot: t.TempDir()}

	assert.Equal(t, "container-host", c.readHostname("container-host"))
}

func TestNewSystemCollectorHostRoot(t *testing.T) {
	t.Setenv("HOST_ROOT", "/host")
	assert.Equal(t, "/host", NewSystemCollector().hostRoot)

	t.Setenv("HOST_ROOT", "")
	assert.Equal(t, "/", NewSystemCollector().hostRoot)
}
