package containers

import (
	"context"
	"io"
	"strconv"
	"strings"

	"codeberg.org/mutker/pidashd/internal/errors"
	"codeberg.org/mutker/pidashd/internal/logger"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

const shortIDLength = 12

type Config struct {
	Enabled     bool
	StopTimeout int
}

// Manager wraps the Docker engine for the dashboard's container controls.
// When the daemon is unreachable at startup the manager starts degraded:
// every operation reports the daemon as unavailable instead of failing
// the whole process.
type Manager struct {
	engine      Engine
	stopTimeout int
}

func NewManager(cfg Config) *Manager {
	m := &Manager{stopTimeout: cfg.StopTimeout}

	if !cfg.Enabled {
		logger.Info().Msg("Container management disabled")
		return m
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Docker client, container management degraded")
		return m
	}

	if _, err := cli.Ping(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Docker daemon unreachable, container management degraded")
		cli.Close()
		return m
	}

	logger.Info().Msg("Connected to Docker daemon")
	m.engine = cli
	return m
}

// NewManagerWithEngine builds a manager around an existing engine.
func NewManagerWithEngine(engine Engine, stopTimeout int) *Manager {
	return &Manager{engine: engine, stopTimeout: stopTimeout}
}

func (m *Manager) available() error {
	if m.engine == nil {
		return errors.New().New(ErrDaemonUnavailable)
	}
	return nil
}

// List returns all containers, running or not.
func (m *Manager) List(ctx context.Context) ([]Container, error) {
	if err := m.available(); err != nil {
		return nil, err
	}

	errFactory := errors.New()

	listed, err := m.engine.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, errFactory.Wrap(ErrListFailed, err)
	}

	out := make([]Container, 0, len(listed))
	for _, c := range listed {
		out = append(out, Container{
			ID:     shortID(c.ID),
			Name:   containerName(c.Names),
			Image:  imageName(c.Image),
			Status: c.State,
			Port:   primaryPort(c.Ports),
		})
	}

	return out, nil
}

// Start starts a container and returns its name.
func (m *Manager) Start(ctx context.Context, containerID string) (string, error) {
	if err := m.available(); err != nil {
		return "", err
	}

	errFactory := errors.New()

	inspected, err := m.engine.ContainerInspect(ctx, containerID)
	if err != nil {
		return "", errFactory.Wrap(ErrNotFound, err)
	}

	if err := m.engine.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return "", errFactory.Wrap(ErrStartFailed, err)
	}

	name := strings.TrimPrefix(inspected.Name, "/")
	logger.Info().Str("name", name).Str("id", containerID).Msg("Started container")
	return name, nil
}

// Stop stops a container and returns its name.
func (m *Manager) Stop(ctx context.Context, containerID string) (string, error) {
	if err := m.available(); err != nil {
		return "", err
	}

	errFactory := errors.New()

	inspected, err := m.engine.ContainerInspect(ctx, containerID)
	if err != nil {
		return "", errFactory.Wrap(ErrNotFound, err)
	}

	if err := m.engine.ContainerStop(ctx, containerID, m.stopOptions()); err != nil {
		return "", errFactory.Wrap(ErrStopFailed, err)
	}

	name := strings.TrimPrefix(inspected.Name, "/")
	logger.Info().Str("name", name).Str("id", containerID).Msg("Stopped container")
	return name, nil
}

// Restart restarts a container and returns its name.
func (m *Manager) Restart(ctx context.Context, containerID string) (string, error) {
	if err := m.available(); err != nil {
		return "", err
	}

	errFactory := errors.New()

	inspected, err := m.engine.ContainerInspect(ctx, containerID)
	if err != nil {
		return "", errFactory.Wrap(ErrNotFound, err)
	}

	if err := m.engine.ContainerRestart(ctx, containerID, m.stopOptions()); err != nil {
		return "", errFactory.Wrap(ErrRestartFailed, err)
	}

	name := strings.TrimPrefix(inspected.Name, "/")
	logger.Info().Str("name", name).Str("id", containerID).Msg("Restarted container")
	return name, nil
}

// Update pulls the container's image tag and recreates the container with
// its previous port bindings, binds, environment, network mode and restart
// policy. Returns the container name and the new short id.
func (m *Manager) Update(ctx context.Context, containerID string) (name, newID string, err error) {
	if err := m.available(); err != nil {
		return "", "", err
	}

	errFactory := errors.New()

	inspected, err := m.engine.ContainerInspect(ctx, containerID)
	if err != nil {
		return "", "", errFactory.Wrap(ErrNotFound, err)
	}

	name = strings.TrimPrefix(inspected.Name, "/")

	imageRef := ""
	if inspected.Config != nil {
		imageRef = inspected.Config.Image
	}
	if imageRef == "" || strings.HasPrefix(imageRef, "sha256:") {
		return "", "", errFactory.WithData(ErrUntaggedImage, name)
	}

	logger.Info().Str("image", imageRef).Msg("Pulling latest image")
	pull, err := m.engine.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return "", "", errFactory.Wrap(ErrUpdateFailed, err)
	}
	// The pull completes only once the progress stream is drained
	if _, err := io.Copy(io.Discard, pull); err != nil {
		pull.Close()
		return "", "", errFactory.Wrap(ErrUpdateFailed, err)
	}
	pull.Close()

	logger.Info().Str("name", name).Msg("Stopping and removing container")
	if err := m.engine.ContainerStop(ctx, containerID, m.stopOptions()); err != nil {
		return "", "", errFactory.Wrap(ErrUpdateFailed, err)
	}
	if err := m.engine.ContainerRemove(ctx, containerID, container.RemoveOptions{}); err != nil {
		return "", "", errFactory.Wrap(ErrUpdateFailed, err)
	}

	config := &container.Config{Image: imageRef}
	if inspected.Config != nil {
		config.Env = inspected.Config.Env
	}

	hostConfig := &container.HostConfig{}
	if inspected.HostConfig != nil {
		hostConfig.PortBindings = inspected.HostConfig.PortBindings
		hostConfig.Binds = inspected.HostConfig.Binds
		hostConfig.NetworkMode = inspected.HostConfig.NetworkMode
		hostConfig.RestartPolicy = inspected.HostConfig.RestartPolicy
	}

	logger.Info().Str("name", name).Msg("Creating container with updated image")
	created, err := m.engine.ContainerCreate(ctx, config, hostConfig, nil, nil, name)
	if err != nil {
		return "", "", errFactory.Wrap(ErrUpdateFailed, err)
	}

	if err := m.engine.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return "", "", errFactory.Wrap(ErrUpdateFailed, err)
	}

	newID = shortID(created.ID)
	logger.Info().Str("name", name).Str("id", newID).Msg("Container updated")
	return name, newID, nil
}

func (m *Manager) stopOptions() container.StopOptions {
	timeout := m.stopTimeout
	return container.StopOptions{Timeout: &timeout}
}

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

func containerName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.TrimPrefix(names[0], "/")
}

// imageName keeps tagged references as-is and shortens bare image ids.
func imageName(ref string) string {
	if digest, ok := strings.CutPrefix(ref, "sha256:"); ok {
		return shortID(digest)
	}
	return ref
}

// primaryPort returns the first published host port, matching what the
// dashboard links to.
func primaryPort(ports []types.Port) string {
	for _, p := range ports {
		if p.PublicPort != 0 {
			return strconv.Itoa(int(p.PublicPort))
		}
	}
	return ""
}
