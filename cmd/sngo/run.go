package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/najoast/sngo/v2/bootstrap"
	"github.com/najoast/sngo/v2/core"
	"github.com/najoast/sngo/v2/message"
	"github.com/najoast/sngo/v2/messages"
)

// pingServiceName is the service answering Ping on every node.
const pingServiceName = "ping"

func newRunCmd() *cobra.Command {
	var (
		configFile string
		envFiles   []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a node until interrupted.",
		Long: "`run --config sngo.yaml` starts a node and reloads the file on change. " +
			"Without --config the configuration is searched for in the usual places.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Variables already set in the environment win over the files.
			if len(envFiles) > 0 {
				if err := godotenv.Load(envFiles...); err != nil {
					return fmt.Errorf("failed to load env file: %w", err)
				}
			}

			builder := bootstrap.NewApplicationBuilder().
				WithHandler(pingServiceName, core.HandlerFunc(answerPing))
			if configFile != "" {
				builder = builder.WithConfigFile(configFile)
			}

			app, err := builder.Build()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "configuration file (.yaml, .yml or .json)")
	cmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files with SNGO_* overrides")
	return cmd
}

func answerPing(ctx core.Context, env *message.Envelope) error {
	if ping, ok := message.As[messages.Ping](env); ok {
		return ctx.Respond(messages.Pong{Payload: ping.Payload})
	}
	return nil
}
