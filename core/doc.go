// Package core implements the fundamental Actor system for SNGO.
//
// Every actor runs in its own goroutine, owns a request table for the
// requests it sends and a trace id generator for the flows it starts.
// Requests travel through the mailbox together with a response token; the
// handler answers with Context.Respond, hands the token to someone else with
// Context.TakeToken, or lets the runtime decline it when the handler returns.
package core
