// Package config provides error definitions for configuration management
package config

import "errors"

// Configuration validation errors
var (
	ErrInvalidAppName     = errors.New("invalid application name")
	ErrInvalidEnvironment = errors.New("invalid environment")
	ErrInvalidNodeNo      = errors.New("invalid node number")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrInvalidPort        = errors.New("invalid port number")
	ErrInvalidMaxActors   = errors.New("invalid max actors")
	ErrInvalidMailboxSize = errors.New("invalid mailbox size")
)

// Configuration loading errors
var (
	ErrConfigFileNotFound = errors.New("configuration file not found")
	ErrUnsupportedFormat  = errors.New("unsupported configuration format")
	ErrWatcherUnavailable = errors.New("configuration watcher not available")
)
