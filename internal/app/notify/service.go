// Package notify maps classified deal events to Slack messages and
// keeps each deal's notifications chained into one thread.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/domain"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/observability"
)

type Config struct {
	Channel string

	// ThreadTSFieldKey is the deal custom field carrying the Slack
	// thread_ts. Empty disables thread tracking.
	ThreadTSFieldKey     string
	HandoverDateFieldKey string

	AgentReadyStageName   string
	ChatApprovalStageName string

	// EarlyNotifyStageNames lists stage names whose creation footer
	// is a plain cc instead of an action request.
	EarlyNotifyStageNames []string

	// FixedMentionIDs are the Slack member ids always cc'd or asked
	// to act in footers.
	FixedMentionIDs []string

	CouponSheetURL string
}

type Service struct {
	crm    domain.CRMClient
	chat   domain.ChatClient
	owners domain.OwnerDirectory
	cfg    Config
}

func NewService(crm domain.CRMClient, chat domain.ChatClient, owners domain.OwnerDirectory, cfg Config) *Service {
	return &Service{
		crm:    crm,
		chat:   chat,
		owners: owners,
		cfg:    cfg,
	}
}

// HandleEvent routes a classified event to its notification rule.
// Ignored events are a no-op by definition.
func (s *Service) HandleEvent(ctx context.Context, ev domain.Event) error {
	switch ev.Kind {
	case domain.EventCreated:
		return s.notifyCreated(ctx, ev.Deal)
	case domain.EventStageChanged:
		return s.notifyStageChanged(ctx, ev)
	default:
		return nil
	}
}

// notifyCreated always notifies. Fetch failures while composing only
// degrade labels; the post itself propagates.
func (s *Service) notifyCreated(ctx context.Context, deal *domain.Deal) error {
	log := observability.LoggerFromContext(ctx).With("deal_id", deal.ID)

	stageName := s.stageName(ctx, deal.StageName, deal.StageID)
	stageLabel := stageName
	if stageLabel == "" {
		stageLabel = "不明"
	}

	handover := deal.CustomField(s.cfg.HandoverDateFieldKey)
	if handover == "" {
		handover = "未設定"
	}

	lines := []string{
		":new: *新規案件が登録されました*",
		"施設名: " + deal.Label(),
		"担当: " + s.ownerMention(deal),
		"ステージ: " + stageLabel,
		"引き渡し希望日: " + handover,
	}
	if footer := s.createdFooter(stageName); footer != "" {
		lines = append(lines, "", footer)
	}

	log.Info("notifying deal creation", "stage", stageLabel)
	return s.PostTracked(ctx, deal, joinLines(lines))
}

// createdFooter picks the footer line: stages in the early-notify set
// get a plain cc (omitted when no responders are configured), every
// other stage gets an action request.
func (s *Service) createdFooter(stageName string) string {
	mentions := s.fixedMentions()
	for _, early := range s.cfg.EarlyNotifyStageNames {
		if stageName == early {
			if mentions == "" {
				return ""
			}
			return "cc: " + mentions
		}
	}
	if mentions == "" {
		return "対応をお願いします。"
	}
	return mentions + " 対応をお願いします。"
}

// notifyStageChanged evaluates the two named-stage rules in order.
// Any other stage name notifies nobody.
func (s *Service) notifyStageChanged(ctx context.Context, ev domain.Event) error {
	deal := ev.Deal
	log := observability.LoggerFromContext(ctx).With("deal_id", deal.ID)

	stageName := s.stageName(ctx, deal.StageName, ev.CurrentStageID)
	if stageName == "" {
		log.Warn("stage name unresolved, skipping stage-change notification",
			"stage_id", ev.CurrentStageID)
		return nil
	}

	switch stageName {
	case s.cfg.AgentReadyStageName:
		lines := []string{
			":rotating_light: *agent調整完了ステータスの案件共有*",
			"施設名: " + deal.Label(),
			"担当: " + s.ownerMention(deal),
			s.couponLine(),
		}
		log.Info("notifying agent-ready stage", "stage", stageName)
		return s.PostTracked(ctx, deal, joinLines(lines))

	case s.cfg.ChatApprovalStageName:
		lines := []string{
			":speech_balloon: *チャット利用承諾ステージに進みました*",
			"施設名: " + deal.Label(),
		}
		if mentions := s.fixedMentions(); mentions != "" {
			lines = append(lines, mentions+" 開設準備をお願いします。")
		} else {
			lines = append(lines, "開設準備をお願いします。")
		}
		log.Info("notifying chat-approval stage", "stage", stageName)
		return s.PostTracked(ctx, deal, joinLines(lines))
	}

	log.Info("stage change without notification rule", "stage", stageName)
	return nil
}

func (s *Service) couponLine() string {
	if s.cfg.CouponSheetURL != "" {
		return fmt.Sprintf("クーポン資料: %s", s.cfg.CouponSheetURL)
	}
	return "クーポン資料の準備をお願いします。"
}

// stageName resolves the human-facing stage name: payload value
// first, else a live fetch by id. Empty means unresolved.
func (s *Service) stageName(ctx context.Context, fromPayload, stageID string) string {
	if fromPayload != "" {
		return fromPayload
	}
	if stageID == "" {
		return ""
	}
	stage, err := s.crm.GetStage(ctx, stageID)
	if err != nil || stage == nil {
		observability.LoggerFromContext(ctx).Warn("stage fetch failed", "stage_id", stageID, "error", err)
		return ""
	}
	return stage.Name
}

func (s *Service) ownerMention(deal *domain.Deal) string {
	if deal.OwnerID == "" {
		return "担当者未設定"
	}
	if slackID, ok := s.owners.SlackID(deal.OwnerID); ok {
		return "<@" + slackID + ">"
	}
	return "owner_id " + deal.OwnerID
}

func (s *Service) fixedMentions() string {
	mentions := make([]string, 0, len(s.cfg.FixedMentionIDs))
	for _, id := range s.cfg.FixedMentionIDs {
		mentions = append(mentions, "<@"+id+">")
	}
	return strings.Join(mentions, " ")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
