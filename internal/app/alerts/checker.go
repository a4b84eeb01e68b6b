// Package alerts implements the one-shot deal alert job: deals whose
// requested handover date is imminent or past, and deals sitting in
// the same stage too long. Alerts land in the deal's existing
// notification thread when one is recorded on the record.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/domain"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/observability"
)

// Alert windows in days. Deadline alerts also fire for anything
// already overdue; stagnation alerts fire only on the exact day so a
// daily run produces each tier once.
var (
	deadlineAlertDays   = []int{3, 1, 0}
	stagnationAlertDays = []int{3, 7, 14, 30}
)

type Config struct {
	PipelineID           string
	Channel              string
	HandoverDateFieldKey string

	// ThreadTSFieldKey routes alerts into the deal's notification
	// thread. The job only reads the handle, it never creates one:
	// threads belong to the webhook notification stream.
	ThreadTSFieldKey string
}

type Checker struct {
	crm  domain.CRMClient
	chat domain.ChatClient
	cfg  Config
	now  func() time.Time
}

func NewChecker(crm domain.CRMClient, chat domain.ChatClient, cfg Config) *Checker {
	return &Checker{
		crm:  crm,
		chat: chat,
		cfg:  cfg,
		now:  time.Now,
	}
}

type alert struct {
	deal *domain.Deal
	text string
}

// Run fetches all open deals of the pipeline once and sends every
// matching alert. Individual post failures are logged and skipped so
// one bad deal does not mute the rest.
func (c *Checker) Run(ctx context.Context) error {
	log := observability.LoggerFromContext(ctx)

	deals, err := c.crm.ListOpenDeals(ctx, c.cfg.PipelineID, "")
	if err != nil {
		return fmt.Errorf("fetching open deals: %w", err)
	}
	if len(deals) == 0 {
		log.Info("no open deals, nothing to check")
		return nil
	}

	stageNames := map[string]string{}
	var alerts []alert
	alerts = append(alerts, c.deadlineAlerts(ctx, deals, stageNames)...)
	alerts = append(alerts, c.stagnationAlerts(ctx, deals, stageNames)...)

	log.Info("alert check finished", "deals", len(deals), "alerts", len(alerts))

	for _, a := range alerts {
		threadTS := ""
		if c.cfg.ThreadTSFieldKey != "" {
			threadTS = a.deal.CustomField(c.cfg.ThreadTSFieldKey)
		}
		if _, err := c.chat.PostMessage(ctx, c.cfg.Channel, a.text, threadTS); err != nil {
			log.Error("alert post failed", "deal_id", a.deal.ID, "error", err)
		}
	}
	return nil
}

func (c *Checker) deadlineAlerts(ctx context.Context, deals []*domain.Deal, stageNames map[string]string) []alert {
	var out []alert
	today := dateOnly(c.now())

	for _, d := range deals {
		raw := d.CustomField(c.cfg.HandoverDateFieldKey)
		if raw == "" {
			continue
		}
		handover, err := time.Parse("2006-01-02", raw)
		if err != nil {
			continue
		}

		daysUntil := int(dateOnly(handover).Sub(today).Hours() / 24)
		if !containsDay(deadlineAlertDays, daysUntil) && daysUntil >= 0 {
			continue
		}

		out = append(out, alert{
			deal: d,
			text: deadlineMessage(d, daysUntil, raw, c.stageName(ctx, d.StageID, stageNames)),
		})
	}
	return out
}

func (c *Checker) stagnationAlerts(ctx context.Context, deals []*domain.Deal, stageNames map[string]string) []alert {
	var out []alert
	now := c.now().UTC()

	for _, d := range deals {
		if d.StageChangeTime == "" {
			continue
		}
		changed, err := parseStageChangeTime(d.StageChangeTime)
		if err != nil {
			continue
		}

		daysInStage := int(now.Sub(changed).Hours() / 24)
		if !containsDay(stagnationAlertDays, daysInStage) {
			continue
		}

		out = append(out, alert{
			deal: d,
			text: stagnationMessage(d, daysInStage, c.stageName(ctx, d.StageID, stageNames)),
		})
	}
	return out
}

// Pipedrive reports stage_change_time as "2006-01-02 15:04:05" (UTC)
// in REST responses and RFC 3339 in newer payloads.
func parseStageChangeTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}

// stageName resolves and memoizes per run; failures fall back to an
// id label.
func (c *Checker) stageName(ctx context.Context, stageID string, cache map[string]string) string {
	if stageID == "" {
		return "不明"
	}
	if name, ok := cache[stageID]; ok {
		return name
	}
	name := fmt.Sprintf("ステージ%s", stageID)
	if stage, err := c.crm.GetStage(ctx, stageID); err == nil && stage != nil && stage.Name != "" {
		name = stage.Name
	}
	cache[stageID] = name
	return name
}

func deadlineMessage(d *domain.Deal, daysUntil int, handoverDate, stageName string) string {
	var urgency, status string
	switch {
	case daysUntil < 0:
		urgency = "🚨"
		status = fmt.Sprintf("期限超過（%d日経過）", -daysUntil)
	case daysUntil == 0:
		urgency = "⚠️"
		status = "本日が期限"
	case daysUntil == 1:
		urgency = "⚠️"
		status = "明日が期限"
	default:
		urgency = "📅"
		status = fmt.Sprintf("%d日後が期限", daysUntil)
	}

	return fmt.Sprintf(`%s *期限アラート: %s*

企業名: %s
引き渡し希望日: %s
現在のステージ: %s

対応をご確認ください。`, urgency, status, d.Label(), handoverDate, stageName)
}

func stagnationMessage(d *domain.Deal, days int, stageName string) string {
	urgency := "📌"
	switch {
	case days >= 30:
		urgency = "🚨"
	case days >= 14:
		urgency = "⚠️"
	}

	return fmt.Sprintf(`%s *滞留アラート: %d日間同じステージ*

企業名: %s
現在のステージ: %s
滞留期間: %d日間

次のアクションをご検討ください。`, urgency, days, d.Label(), stageName, days)
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
