// Package workflow drives the stage-mover modal lifecycle. The
// engine holds no session state of its own: everything it needs on
// the next step lives in the Slack view, so each handler is a pure
// request/response round-trip against the view API.
package workflow

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/domain"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/observability"
)

type Config struct {
	PipelineID string
	Channel    string

	// The tokens themselves live in the clients; the engine only
	// checks presence so a half-configured deploy answers the user
	// instead of failing the slash command.
	SlackBotToken     string
	PipedriveAPIToken string
}

type Service struct {
	crm  domain.CRMClient
	chat domain.ChatClient
	cfg  Config
}

func NewService(crm domain.CRMClient, chat domain.ChatClient, cfg Config) *Service {
	return &Service{
		crm:  crm,
		chat: chat,
		cfg:  cfg,
	}
}

// Open handles the slash command: fetch the stage list and open the
// three-field modal. The deal selector starts with a placeholder
// sentinel until a current stage is chosen.
func (s *Service) Open(ctx context.Context, triggerID string) error {
	if s.cfg.SlackBotToken == "" {
		return &domain.ConfigurationError{Missing: "SLACK_BOT_TOKEN"}
	}
	if s.cfg.PipedriveAPIToken == "" {
		return &domain.ConfigurationError{Missing: "PIPEDRIVE_API_TOKEN"}
	}

	log := observability.LoggerFromContext(ctx)

	stages, err := s.crm.ListStages(ctx, s.cfg.PipelineID)
	if err != nil {
		log.Error("stage list fetch failed", "pipeline_id", s.cfg.PipelineID, "error", err)
		stages = nil
	}
	if len(stages) == 0 {
		return &domain.UpstreamDataError{Msg: "パイプラインのステージを取得できませんでした"}
	}

	log.Info("opening stage mover modal", "stages", len(stages))
	return s.chat.OpenView(ctx, triggerID, buildModal(stages, nil, ""))
}

// HandleBlockActions reacts to the current-stage selector only; any
// other in-modal interaction is a no-op. The open view is rebuilt in
// place with the deal selector populated for the chosen stage.
func (s *Service) HandleBlockActions(ctx context.Context, cb *slack.InteractionCallback) error {
	selected := selectedCurrentStage(cb)
	if selected == "" {
		return nil
	}

	log := observability.LoggerFromContext(ctx).With("stage_id", selected)

	stages, err := s.crm.ListStages(ctx, s.cfg.PipelineID)
	if err != nil {
		log.Error("stage list refetch failed", "error", err)
		stages = nil
	}

	deals, err := s.crm.ListOpenDeals(ctx, s.cfg.PipelineID, selected)
	if err != nil {
		log.Error("deal list fetch failed", "error", err)
		deals = nil
	}

	log.Info("updating stage mover modal", "deals", len(deals))
	return s.chat.UpdateView(ctx, cb.View.ID, cb.View.Hash, buildModal(stages, deals, selected))
}

// HandleSubmission commits the move. Order is fixed: mutate the CRM
// first, confirm after. A failed mutation aborts with the error; the
// follow-up fetches only improve the confirmation text and degrade to
// id-based labels.
func (s *Service) HandleSubmission(ctx context.Context, cb *slack.InteractionCallback) error {
	dealID := submittedValue(cb, blockDeal, actionDeal)
	targetStageID := submittedValue(cb, blockTargetStage, actionTargetStage)

	log := observability.LoggerFromContext(ctx).With("deal_id", dealID, "target_stage_id", targetStageID)

	if dealID == "" || dealID == valueNoDeals || dealID == valueSelectStage {
		// nothing selectable was selected; accepted silently by policy
		log.Info("submission without a deal, nothing to do")
		return nil
	}
	if targetStageID == "" {
		log.Warn("submission without a target stage, nothing to do")
		return nil
	}

	if err := s.crm.UpdateDealStage(ctx, dealID, targetStageID); err != nil {
		return fmt.Errorf("moving deal %s to stage %s: %w", dealID, targetStageID, err)
	}
	log.Info("deal stage updated")

	dealLabel := fmt.Sprintf("案件 %s", dealID)
	if deal, err := s.crm.GetDeal(ctx, dealID); err == nil && deal != nil {
		dealLabel = deal.Label()
	} else if err != nil {
		log.Warn("deal fetch after move failed", "error", err)
	}

	stageLabel := fmt.Sprintf("ステージ %s", targetStageID)
	if stage, err := s.crm.GetStage(ctx, targetStageID); err == nil && stage != nil && stage.Name != "" {
		stageLabel = stage.Name
	} else if err != nil {
		log.Warn("stage fetch after move failed", "error", err)
	}

	text := fmt.Sprintf("<@%s> さんが「%s」を「%s」に移動しました :truck:", cb.User.ID, dealLabel, stageLabel)
	if _, err := s.chat.PostMessage(ctx, s.cfg.Channel, text, ""); err != nil {
		return err
	}
	return nil
}

func selectedCurrentStage(cb *slack.InteractionCallback) string {
	for _, action := range cb.ActionCallback.BlockActions {
		if action.ActionID == actionCurrentStage {
			return action.SelectedOption.Value
		}
	}
	return ""
}

func submittedValue(cb *slack.InteractionCallback, blockID, actionID string) string {
	if cb.View.State == nil {
		return ""
	}
	block, ok := cb.View.State.Values[blockID]
	if !ok {
		return ""
	}
	return block[actionID].SelectedOption.Value
}
