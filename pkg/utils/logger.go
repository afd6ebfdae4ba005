package utils

import "go.uber.org/zap"

// NewLogger returns the process logger. Debug mode uses the development config
// (human-readable console output, debug level); otherwise the production config
// (JSON, info level). Either way the logger is named after the service so its
// lines can be told apart from dependencies that also log through zap.
func NewLogger(debug bool) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.Named("omoide"), nil
}
