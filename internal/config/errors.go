package config

import "errors"

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUnknownBackend is returned, together with ErrInvalidConfig, for an
	// unsupported dedupe_backend or storage value.
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrLoadConfig wraps failures reading the config file or environment.
	ErrLoadConfig = errors.New("load config failed")
)
