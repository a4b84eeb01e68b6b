package main

import (
	"net/http"

	"github.com/spf13/cobra"

	httpadapter "github.com/tokidakohei-rt/pipedrive-slack-notification/internal/adapters/http"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/adapters/ownermap"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/adapters/pipedrive"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/adapters/slackchat"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/app/notify"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/app/workflow"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/config"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := observability.Logger()

		crm := pipedrive.New(cfg.PipedriveAPIToken)
		chat := slackchat.New(cfg.SlackBotToken)
		owners := ownermap.New(cfg.OwnerMapPath)

		notifier := notify.NewService(crm, chat, owners, notify.Config{
			Channel:               cfg.SlackChannel,
			ThreadTSFieldKey:      cfg.ThreadTSFieldKey,
			HandoverDateFieldKey:  cfg.HandoverDateFieldKey,
			AgentReadyStageName:   cfg.AgentReadyStageName,
			ChatApprovalStageName: cfg.ChatApprovalStageName,
			EarlyNotifyStageNames: cfg.EarlyNotifyStageNames,
			FixedMentionIDs:       cfg.FixedMentionIDs,
			CouponSheetURL:        cfg.CouponSheetURL,
		})

		wf := workflow.NewService(crm, chat, workflow.Config{
			PipelineID:        cfg.PipelineID,
			Channel:           cfg.SlackChannel,
			SlackBotToken:     cfg.SlackBotToken,
			PipedriveAPIToken: cfg.PipedriveAPIToken,
		})

		handler := httpadapter.NewServer(wf, notifier)

		addr := ":" + cfg.Port
		log.Info("dealbot listening", "addr", addr, "pipeline_id", cfg.PipelineID)
		return http.ListenAndServe(addr, handler)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
