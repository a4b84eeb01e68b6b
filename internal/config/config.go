package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config carries every runtime option the service recognizes. All
// values come from the environment; Load applies the documented
// defaults. Missing credentials are not fatal here — the workflow
// engine reports them per request so Slack gets a readable message
// instead of a retry-provoking failure.
type Config struct {
	Port string

	PipedriveAPIToken string
	PipelineID        string

	SlackBotToken string
	SlackChannel  string

	// ThreadTSFieldKey is the Pipedrive custom-field key holding the
	// Slack thread_ts per deal. Empty disables thread tracking.
	ThreadTSFieldKey string

	// HandoverDateFieldKey is the custom-field key of the requested
	// handover date (YYYY-MM-DD).
	HandoverDateFieldKey string

	OwnerMapPath string

	AgentReadyStageName   string
	ChatApprovalStageName string
	EarlyNotifyStageNames []string
	FixedMentionIDs       []string
	CouponSheetURL        string
}

// Load reads all env vars and builds the config.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("HANDOVER_DATE_FIELD_KEY", "b459bec642f11294904272a4fe6273d3591b9566")
	v.SetDefault("OWNER_SLACK_MAP_PATH", "config/owner_slack_map.yaml")
	v.SetDefault("AGENT_READY_STAGE_NAME", "agent調整完了")
	v.SetDefault("CHAT_APPROVAL_STAGE_NAME", "チャット利用承諾")

	return &Config{
		Port: v.GetString("PORT"),

		PipedriveAPIToken: v.GetString("PIPEDRIVE_API_TOKEN"),
		PipelineID:        v.GetString("PIPELINE_ID"),

		SlackBotToken: v.GetString("SLACK_BOT_TOKEN"),
		SlackChannel:  v.GetString("SLACK_CHANNEL"),

		ThreadTSFieldKey:     v.GetString("SLACK_THREAD_TS_FIELD_KEY"),
		HandoverDateFieldKey: v.GetString("HANDOVER_DATE_FIELD_KEY"),

		OwnerMapPath: v.GetString("OWNER_SLACK_MAP_PATH"),

		AgentReadyStageName:   v.GetString("AGENT_READY_STAGE_NAME"),
		ChatApprovalStageName: v.GetString("CHAT_APPROVAL_STAGE_NAME"),
		EarlyNotifyStageNames: splitList(v.GetString("EARLY_NOTIFY_STAGE_NAMES")),
		FixedMentionIDs:       splitList(v.GetString("FIXED_MENTION_IDS")),
		CouponSheetURL:        v.GetString("COUPON_SHEET_URL"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
