package core

import "time"

// ActorMetrics records actor activity.
type ActorMetrics interface {
	// MessageProcessed is called after a handler returned.
	MessageProcessed(msgType string, success bool, d time.Duration)
	// MessagePanic is called when a handler panicked.
	MessagePanic(msgType string)
	// MailboxRejected is called when a delivery did not fit a mailbox.
	MailboxRejected()
	// ActorsAlive reports the number of live actors.
	ActorsAlive(n int)
}

type nopActorMetrics struct{}

func (nopActorMetrics) MessageProcessed(string, bool, time.Duration) {}
func (nopActorMetrics) MessagePanic(string)                          {}
func (nopActorMetrics) MailboxRejected()                             {}
func (nopActorMetrics) ActorsAlive(int)                              {}

// NopActorMetrics returns an ActorMetrics that records nothing.
func NopActorMetrics() ActorMetrics { return nopActorMetrics{} }
