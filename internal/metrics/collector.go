package metrics

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/pidashd/internal/errors"
	"codeberg.org/mutker/pidashd/internal/logger"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	cpuSampleDuration = 100 * time.Millisecond
	bytesPerGigabyte  = 1 << 30

	thermalZonePath = "sys/class/thermal/thermal_zone0/temp"
	uptimePath      = "proc/uptime"
	hostnamePath    = "etc/hostname"
)

// SystemCollector reads whole-system metrics. When running inside a
// container with the host filesystem mounted, HOST_ROOT points at the
// mount so temperature, uptime and hostname come from the host and not
// the container.
type SystemCollector struct {
	hostRoot string
}

func NewSystemCollector() *SystemCollector {
	root := os.Getenv("HOST_ROOT")
	if root == "" {
		root = "/"
	}

	return &SystemCollector{hostRoot: root}
}

// Collect returns one sample. CPU, memory and disk failures abort the
// sample; temperature and uptime degrade to zero values instead, matching
// hosts without a thermal zone.
func (c *SystemCollector) Collect() (Sample, error) {
	errFactory := errors.New()

	percentages, err := cpu.Percent(cpuSampleDuration, false)
	if err != nil {
		return Sample{}, errFactory.Wrap(ErrCollectCPU, err)
	}
	if len(percentages) == 0 {
		return Sample{}, errFactory.New(ErrCollectCPU)
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return Sample{}, errFactory.Wrap(ErrCollectMemory, err)
	}

	du, err := disk.Usage(c.hostRoot)
	if err != nil {
		return Sample{}, errFactory.Wrap(ErrCollectDisk, err)
	}

	return Sample{
		CPUUsage:    percentages[0],
		MemoryUsage: vm.UsedPercent,
		DiskUsage:   du.UsedPercent,
		Uptime:      c.readUptime(),
		Temperature: c.readTemperature(),
	}, nil
}

// Info returns static host information for the dashboard header.
func (c *SystemCollector) Info() (SystemInfo, error) {
	errFactory := errors.New()

	info, err := host.Info()
	if err != nil {
		return SystemInfo{}, errFactory.Wrap(ErrSystemInfo, err)
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return SystemInfo{}, errFactory.Wrap(ErrSystemInfo, err)
	}

	du, err := disk.Usage(c.hostRoot)
	if err != nil {
		return SystemInfo{}, errFactory.Wrap(ErrSystemInfo, err)
	}

	return SystemInfo{
		Hostname:    c.readHostname(info.Hostname),
		System:      info.OS,
		Release:     info.KernelVersion,
		Version:     strings.TrimSpace(info.Platform + " " + info.PlatformVersion),
		Machine:     info.KernelArch,
		MemoryTotal: float64(vm.Total) / bytesPerGigabyte,
		DiskTotal:   float64(du.Total) / bytesPerGigabyte,
	}, nil
}

// readHostname prefers the host-mounted /etc/hostname over what the
// container kernel reports.
func (c *SystemCollector) readHostname(fallback string) string {
	data, err := os.ReadFile(filepath.Join(c.hostRoot, hostnamePath))
	if err != nil {
		return fallback
	}

	if hostname := strings.TrimSpace(string(data)); hostname != "" {
		return hostname
	}

	return fallback
}

// readUptime parses the first field of proc/uptime; 0 when unavailable.
func (c *SystemCollector) readUptime() int64 {
	data, err := os.ReadFile(filepath.Join(c.hostRoot, uptimePath))
	if err != nil {
		// Outside of Linux or without the host mount, fall back to gopsutil
		if uptime, err := host.Uptime(); err == nil {
			return int64(uptime)
		}
		logger.Debug().Err(err).Msg("Could not read system uptime")
		return 0
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0
	}

	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		logger.Debug().Err(err).Msg("Could not parse system uptime")
		return 0
	}

	return int64(seconds)
}

// readTemperature reads the first thermal zone in millidegrees Celsius;
// 0.0 when the host has no thermal zone or it cannot be read.
func (c *SystemCollector) readTemperature() float64 {
	data, err := os.ReadFile(filepath.Join(c.hostRoot, thermalZonePath))
	if err != nil {
		return 0.0
	}

	millidegrees, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		logger.Debug().Err(err).Msg("Could not parse CPU temperature")
		return 0.0
	}

	return float64(millidegrees) / 1000.0
}
