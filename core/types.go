package core

import (
	"log/slog"
	"time"

	"github.com/najoast/sngo/v2/addr"
	"github.com/najoast/sngo/v2/message"
	"github.com/najoast/sngo/v2/request"
)

// ActorState represents the current state of an Actor.
type ActorState uint8

const (
	// ActorStateIdle means the Actor is waiting for messages
	ActorStateIdle ActorState = iota

	// ActorStateRunning means the Actor is processing a message
	ActorStateRunning

	// ActorStateStopping means the Actor is shutting down
	ActorStateStopping

	// ActorStateStopped means the Actor has been stopped
	ActorStateStopped
)

// String returns the string representation of ActorState.
func (s ActorState) String() string {
	switch s {
	case ActorStateIdle:
		return "idle"
	case ActorStateRunning:
		return "running"
	case ActorStateStopping:
		return "stopping"
	case ActorStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Failure is sent in place of a response when a handler returns an error
// while it still holds the response token.
type Failure struct {
	Error string
}

// FailureType is the registered id of Failure.
var FailureType = message.Register[Failure]()

// delivery is one mailbox entry. token is nil for regular messages.
type delivery struct {
	env   *message.Envelope
	token *request.Token
}

// ActorOptions contains configuration options for creating an Actor.
type ActorOptions struct {
	// MailboxSize sets the size of the Actor's message queue
	MailboxSize int

	// Name is a human-readable name for the Actor
	Name string

	// Timeout for message processing
	ProcessTimeout time.Duration

	// Logger overrides the system logger for this Actor
	Logger *slog.Logger
}

// DefaultActorOptions returns sensible default options.
func DefaultActorOptions() ActorOptions {
	return ActorOptions{
		MailboxSize:    1000,
		Name:           "",
		ProcessTimeout: 30 * time.Second,
	}
}

// ActorStats contains runtime statistics for an Actor.
type ActorStats struct {
	// Address of the Actor
	Addr addr.Addr

	// Name of the Actor
	Name string

	// Current state
	State ActorState

	// Total messages processed
	MessagesProcessed uint64

	// Messages currently in mailbox
	MailboxSize int

	// Requests sent by the Actor that are not collected yet
	PendingRequests int

	// Time when Actor was created
	CreatedAt time.Time

	// Last message processing time
	LastMessageAt time.Time
}

// SystemOptions configures an ActorSystem.
type SystemOptions struct {
	// NodeNo is embedded into every address and trace id of the system
	NodeNo uint16

	// MaxActors limits the number of live actors; zero means no limit
	MaxActors int

	// DefaultActorOptions apply to actors created with zero options
	DefaultActorOptions ActorOptions

	// Logger is the system logger
	Logger *slog.Logger

	// ActorMetrics records actor activity
	ActorMetrics ActorMetrics

	// RequestMetrics records request table activity of every actor
	RequestMetrics request.Metrics
}
