package bootstrap

import "errors"

var (
	ErrServiceExists     = errors.New("service already registered")
	ErrAlreadyStarted    = errors.New("lifecycle manager already started")
	ErrUnknownDependency = errors.New("dependency is not registered")
	ErrDependencyCycle   = errors.New("circular dependency detected")
	ErrAlreadyRunning    = errors.New("application is already running")
)
