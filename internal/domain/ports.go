package domain

import (
	"context"

	"github.com/slack-go/slack"
)

// CRMClient is the read/write surface this service needs from
// Pipedrive. Implementations degrade read failures to empty results
// so notification composition can fall back to id-based labels.
type CRMClient interface {
	ListStages(ctx context.Context, pipelineID string) ([]Stage, error)
	ListOpenDeals(ctx context.Context, pipelineID, stageID string) ([]*Deal, error)
	GetDeal(ctx context.Context, id string) (*Deal, error)
	GetStage(ctx context.Context, id string) (*Stage, error)
	UpdateDealStage(ctx context.Context, id, stageID string) error
	UpdateDealField(ctx context.Context, id, fieldKey, value string) error
}

// ChatClient wraps the Slack Web API calls the service issues. View
// specs are slack-go modal requests; a second Block Kit representation
// would just mirror the library's types.
type ChatClient interface {
	OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error
	UpdateView(ctx context.Context, viewID, hash string, view slack.ModalViewRequest) error

	// PostMessage returns the platform timestamp of the posted
	// message. threadTS may be empty for a top-level post.
	PostMessage(ctx context.Context, channel, text, threadTS string) (string, error)
}

// OwnerDirectory maps Pipedrive owner ids to Slack member ids.
type OwnerDirectory interface {
	SlackID(ownerID string) (string, bool)
}
