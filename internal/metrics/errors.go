package metrics

import "codeberg.org/mutker/pidashd/internal/errors"

const (
	ErrCollectCPU    = errors.ErrorCode("metrics_collect_cpu_failed")
	ErrCollectMemory = errors.ErrorCode("metrics_collect_memory_failed")
	ErrCollectDisk   = errors.ErrorCode("metrics_collect_disk_failed")
	ErrSystemInfo    = errors.ErrorCode("metrics_system_info_failed")
)
