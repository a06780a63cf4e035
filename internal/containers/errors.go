package containers

import "codeberg.org/mutker/pidashd/internal/errors"

const (
	ErrDaemonUnavailable = errors.ErrorCode("containers_daemon_unavailable")
	ErrListFailed        = errors.ErrorCode("containers_list_failed")
	ErrNotFound          = errors.ErrorCode("containers_not_found")
	ErrStartFailed       = errors.ErrorCode("containers_start_failed")
	ErrStopFailed        = errors.ErrorCode("containers_stop_failed")
	ErrRestartFailed     = errors.ErrorCode("containers_restart_failed")
	ErrUpdateFailed      = errors.ErrorCode("containers_update_failed")
	ErrUntaggedImage     = errors.ErrorCode("containers_untagged_image")
)
