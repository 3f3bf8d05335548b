package config

import "go.uber.org/zap"

// NewLogger returns a production zap logger for APP_ENV=prod and a
// development logger otherwise.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
