package core

import "errors"

var (
	// ErrActorNotFound is returned when an address has no live actor.
	ErrActorNotFound = errors.New("actor not found")

	// ErrMailboxFull is returned when the target mailbox cannot take more messages.
	ErrMailboxFull = errors.New("mailbox is full")

	// ErrActorStopped is returned when the target actor is stopping or stopped.
	ErrActorStopped = errors.New("actor is stopped")

	// ErrSystemShutdown is returned once the actor system is shutting down.
	ErrSystemShutdown = errors.New("actor system is shutting down")

	// ErrTooManyActors is returned when the actor limit is reached.
	ErrTooManyActors = errors.New("too many actors")

	// ErrNoResponse is returned by Request when the target declined to answer.
	ErrNoResponse = errors.New("no response")

	// ErrRemote is returned by Request when the target handler failed.
	ErrRemote = errors.New("remote error")
)
