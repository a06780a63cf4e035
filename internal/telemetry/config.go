package telemetry

import "codeberg.org/mutker/pidashd/internal/errors"

const (
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/pidashd/telemetry.db"
	defaultBatchSize    = 16
	defaultBatchTimeout = 30
)

type Config struct {
	Enabled      bool
	DBPath       string
	BatchSize    int
	BatchTimeout int
}

func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		DBPath:       defaultDBPath,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 1 {
		return errFactory.WithData(ErrInvalidConfig, c.BatchSize)
	}
	if c.BatchTimeout < 1 {
		return errFactory.WithData(ErrInvalidConfig, c.BatchTimeout)
	}

	return nil
}
