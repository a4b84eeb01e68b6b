package workflow

import (
	"github.com/slack-go/slack"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/domain"
)

const (
	// CallbackID identifies submissions of the stage mover modal.
	CallbackID = "deal_stage_mover"

	blockCurrentStage = "current_stage_block"
	blockDeal         = "deal_block"
	blockTargetStage  = "target_stage_block"

	actionCurrentStage = "current_stage_select"
	actionDeal         = "deal_select"
	actionTargetStage  = "target_stage_select"

	// Sentinel option values for the deal selector. Submissions
	// carrying either are accepted without action.
	valueSelectStage = "__select_stage__"
	valueNoDeals     = "__no_deals__"
)

// buildModal renders the three-field form. selectedStageID preserves
// the current-stage choice across the in-place update; deals fills
// the deal selector, or a single sentinel option when empty so the
// selector is never option-less.
func buildModal(stages []domain.Stage, deals []*domain.Deal, selectedStageID string) slack.ModalViewRequest {
	stageOptions := make([]*slack.OptionBlockObject, 0, len(stages))
	var selectedOption *slack.OptionBlockObject
	for _, st := range stages {
		opt := slack.NewOptionBlockObject(st.ID, plainText(st.Name), nil)
		stageOptions = append(stageOptions, opt)
		if st.ID == selectedStageID {
			selectedOption = opt
		}
	}

	currentSelect := slack.NewOptionsSelectBlockElement(
		slack.OptTypeStatic, plainText("ステージを選択"), actionCurrentStage, stageOptions...)
	if selectedOption != nil {
		currentSelect.InitialOption = selectedOption
	}
	currentBlock := slack.NewInputBlock(blockCurrentStage, plainText("移動する案件のステージ"), nil, currentSelect)
	// fires block_actions on selection so the deal list can cascade
	currentBlock.DispatchAction = true

	dealSelect := slack.NewOptionsSelectBlockElement(
		slack.OptTypeStatic, plainText("案件を選択"), actionDeal, dealOptions(deals, selectedStageID)...)
	dealBlock := slack.NewInputBlock(blockDeal, plainText("移動する案件"), nil, dealSelect)

	targetSelect := slack.NewOptionsSelectBlockElement(
		slack.OptTypeStatic, plainText("ステージを選択"), actionTargetStage, stageOptions...)
	targetBlock := slack.NewInputBlock(blockTargetStage, plainText("移動先のステージ"), nil, targetSelect)

	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: CallbackID,
		Title:      plainText("案件ステージ移動"),
		Submit:     plainText("移動する"),
		Close:      plainText("キャンセル"),
		Blocks: slack.Blocks{
			BlockSet: []slack.Block{currentBlock, dealBlock, targetBlock},
		},
	}
}

func dealOptions(deals []*domain.Deal, selectedStageID string) []*slack.OptionBlockObject {
	if selectedStageID == "" {
		return []*slack.OptionBlockObject{
			slack.NewOptionBlockObject(valueSelectStage, plainText("先にステージを選択してください"), nil),
		}
	}
	if len(deals) == 0 {
		return []*slack.OptionBlockObject{
			slack.NewOptionBlockObject(valueNoDeals, plainText("該当する案件がありません"), nil),
		}
	}
	opts := make([]*slack.OptionBlockObject, 0, len(deals))
	for _, d := range deals {
		opts = append(opts, slack.NewOptionBlockObject(d.ID, plainText(d.Label()), nil))
	}
	return opts
}

func plainText(s string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, s, false, false)
}
