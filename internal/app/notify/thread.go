package notify

import (
	"context"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/domain"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/observability"
)

// resolveThread finds the deal's existing thread handle, if any: the
// inbound payload's custom field first (cheap), then a live fetch.
// Returns "" when tracking is disabled or no handle exists yet.
func (s *Service) resolveThread(ctx context.Context, deal *domain.Deal) string {
	key := s.cfg.ThreadTSFieldKey
	if key == "" {
		return ""
	}

	if ts := deal.CustomField(key); ts != "" {
		return ts
	}

	if deal.ID == "" {
		return ""
	}
	fetched, err := s.crm.GetDeal(ctx, deal.ID)
	if err != nil || fetched == nil {
		observability.LoggerFromContext(ctx).Warn("deal fetch for thread lookup failed",
			"deal_id", deal.ID, "error", err)
		return ""
	}
	return fetched.CustomField(key)
}

// persistThread writes the handle back onto the deal. Best effort:
// a failure is logged and swallowed, it never blocks or rolls back
// the message that was already delivered.
func (s *Service) persistThread(ctx context.Context, dealID, ts string) {
	if err := s.crm.UpdateDealField(ctx, dealID, s.cfg.ThreadTSFieldKey, ts); err != nil {
		observability.LoggerFromContext(ctx).Warn("thread handle write-back failed",
			"deal_id", dealID, "ts", ts, "error", err)
	}
}

// PostTracked posts text for a deal through the thread-aware path:
// reply into the existing thread when there is one, otherwise post
// top-level and record the new handle. Once tracking is enabled a
// deal gets at most one top-level post.
func (s *Service) PostTracked(ctx context.Context, deal *domain.Deal, text string) error {
	threadTS := s.resolveThread(ctx, deal)

	ts, err := s.chat.PostMessage(ctx, s.cfg.Channel, text, threadTS)
	if err != nil {
		return err
	}

	if threadTS == "" && s.cfg.ThreadTSFieldKey != "" && ts != "" && deal.ID != "" {
		s.persistThread(ctx, deal.ID, ts)
	}
	return nil
}
