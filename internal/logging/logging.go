// Package logging builds the process-wide zap.Logger used by every
// component. There is no package-level logger singleton: main constructs
// one Logger and passes it down via constructor injection, and each
// component names its own child with Named.
package logging

import "go.uber.org/zap"

// Config selects the logger's verbosity and output format.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
}

// New builds a *zap.Logger. Level "debug" uses the development encoder
// (human-readable, colorized level names); anything else uses the
// production JSON encoder.
func New(cfg Config) (*zap.Logger, error) {
	var zcfg zap.Config
	switch cfg.Level {
	case "debug":
		zcfg = zap.NewDevelopmentConfig()
	default:
		zcfg = zap.NewProductionConfig()
	}

	switch cfg.Level {
	case "debug":
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zcfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return zcfg.Build()
}
