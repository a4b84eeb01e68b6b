package main

import (
	"github.com/spf13/cobra"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/adapters/pipedrive"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/adapters/slackchat"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/app/alerts"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/config"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Run the deal alert check once (deadline and stagnation)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		checker := alerts.NewChecker(
			pipedrive.New(cfg.PipedriveAPIToken),
			slackchat.New(cfg.SlackBotToken),
			alerts.Config{
				PipelineID:           cfg.PipelineID,
				Channel:              cfg.SlackChannel,
				HandoverDateFieldKey: cfg.HandoverDateFieldKey,
				ThreadTSFieldKey:     cfg.ThreadTSFieldKey,
			},
		)

		return checker.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd)
}
