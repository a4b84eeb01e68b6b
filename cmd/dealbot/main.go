package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "dealbot",
	Short: "Pipedrive ⇄ Slack deal bridge",
	Long: `dealbot bridges a Pipedrive pipeline and Slack: a webhook server
that turns deal changes into Slack notifications and drives the
stage-mover modal, plus a one-shot deal alert job.`,
	SilenceUsage: true,
}

func main() {
	// .env is a dev convenience; absence is the normal case in prod
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		observability.Logger().Error("command failed", "error", err)
		os.Exit(1)
	}
}
