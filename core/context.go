package core

import (
	"context"
	"log/slog"

	"github.com/najoast/sngo/v2/addr"
	"github.com/najoast/sngo/v2/message"
	"github.com/najoast/sngo/v2/request"
	"github.com/najoast/sngo/v2/tracing"
)

// actorContext implements Context.
type actorContext struct {
	context.Context

	actor   *actor
	env     *message.Envelope
	token   *request.Token
	traceID tracing.TraceID
	logger  *slog.Logger
}

func (c *actorContext) Addr() addr.Addr {
	return c.actor.addr
}

func (c *actorContext) Envelope() *message.Envelope {
	return c.env
}

func (c *actorContext) TraceID() tracing.TraceID {
	return c.traceID
}

func (c *actorContext) StartTrace() tracing.TraceID {
	c.traceID = c.actor.traceGen.Generate(c.actor.system.chunks)
	c.logger = nil
	return c.traceID
}

func (c *actorContext) Send(to addr.Addr, msg any) error {
	return c.actor.system.send(c.actor.addr, to, msg, c.traceID)
}

func (c *actorContext) Request(ctx context.Context, to addr.Addr, msg any) (*message.Envelope, error) {
	return c.actor.system.requestOne(ctx, c.actor, to, msg, c.traceID)
}

func (c *actorContext) RequestAll(ctx context.Context, to []addr.Addr, msg any) ([]*message.Envelope, error) {
	return c.actor.system.request(ctx, c.actor, to, msg, c.traceID)
}

func (c *actorContext) Respond(msg any) error {
	if c.token.IsForgotten() {
		return nil
	}

	env, err := message.Wrap(msg, c.actor.addr)
	if err != nil {
		return err
	}
	env.TraceID = c.traceID

	c.token.Respond(env)
	return nil
}

func (c *actorContext) TakeToken() *request.Token {
	tok := c.token
	c.token = request.Forgotten()
	return tok
}

func (c *actorContext) Logger() *slog.Logger {
	if c.logger == nil {
		c.logger = c.actor.logger.With("trace_id", c.traceID.String())
	}
	return c.logger
}
