package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultProbePrompt = "What would be a good company name for a company that makes colorful socks?"

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe [prompt]",
		Short: "Send one prompt to the configured model and print the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			gateway, err := newGateway(cfg.LLM)
			if err != nil {
				logger.Error("failed to initialize LLM service", zap.Error(err))
				return err
			}

			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				prompt = defaultProbePrompt
			}

			reply, err := gateway.Chat(cmd.Context(), cfg.LLM.Model, prompt)
			if err != nil {
				logger.Error("failed to generate completion", zap.Error(err), zap.String("model", cfg.LLM.Model))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}
