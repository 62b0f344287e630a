package core

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logger intended to be used for general application logs,
// shared by all server components.
func NewLogger(cfg *Config) (*logrus.Logger, error) {
	var logLvl logrus.Level

	switch cfg.Logging.LogLevel {
	case "debug":
		logLvl = logrus.DebugLevel
	case "", "info":
		logLvl = logrus.InfoLevel
	case "warn":
		logLvl = logrus.WarnLevel
	case "error":
		logLvl = logrus.ErrorLevel
	default:
		return nil, fmt.Errorf("unrecognized log level: %s", cfg.Logging.LogLevel)
	}

	logOutput := os.Stdout
	if cfg.Logging.LogFilePath != "" {
		var err error
		logOutput, err = os.OpenFile(cfg.Logging.LogFilePath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o666)
		if err != nil {
			return nil, fmt.Errorf("error opening log file %s: %w", cfg.Logging.LogFilePath, err)
		}
	}

	return &logrus.Logger{
		Out: logOutput,
		Formatter: &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		},
		Hooks: make(logrus.LevelHooks),
		Level: logLvl,
	}, nil
}
