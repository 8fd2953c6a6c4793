// Package messages defines the protocol messages every actor may receive.
package messages

import (
	"github.com/najoast/sngo/v2/config"
	"github.com/najoast/sngo/v2/message"
)

// ValidateConfig asks an actor whether it can run with Config. The actor
// answers with ConfigRejected to veto the update; any other answer, or none,
// counts as acceptance.
type ValidateConfig struct {
	Config *config.Config
}

// Clone copies the carried configuration.
func (m ValidateConfig) Clone() ValidateConfig {
	return ValidateConfig{Config: m.Config.Clone()}
}

// UpdateConfig tells an actor to switch to Config. It is sent only after
// every actor accepted the matching ValidateConfig.
type UpdateConfig struct {
	Config *config.Config
}

// Clone copies the carried configuration.
func (m UpdateConfig) Clone() UpdateConfig {
	return UpdateConfig{Config: m.Config.Clone()}
}

// ConfigRejected is the negative answer to ValidateConfig.
type ConfigRejected struct {
	Reason string
}

// ConfigUpdated acknowledges UpdateConfig.
type ConfigUpdated struct{}

// Ping is answered with a Pong carrying the same payload.
type Ping struct {
	Payload string
}

// Pong answers Ping.
type Pong struct {
	Payload string
}

var (
	ValidateConfigType = message.Register[ValidateConfig]()
	UpdateConfigType   = message.Register[UpdateConfig]()
	ConfigRejectedType = message.Register[ConfigRejected]()
	ConfigUpdatedType  = message.Register[ConfigUpdated]()
	PingType           = message.Register[Ping]()
	PongType           = message.Register[Pong]()
)
