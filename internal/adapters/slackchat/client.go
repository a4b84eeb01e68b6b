// Package slackchat implements the chat port on slack-go. A non-ok
// API response comes back from slack-go as an error and is wrapped
// into the domain's UpstreamCallError so the dispatcher can map it to
// a readable 200.
package slackchat

import (
	"context"

	"github.com/slack-go/slack"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/domain"
)

type Client struct {
	api *slack.Client
}

func New(botToken string) *Client {
	return &Client{api: slack.New(botToken)}
}

func (c *Client) OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error {
	if _, err := c.api.OpenViewContext(ctx, triggerID, view); err != nil {
		return &domain.UpstreamCallError{Op: "views.open", Err: err}
	}
	return nil
}

func (c *Client) UpdateView(ctx context.Context, viewID, hash string, view slack.ModalViewRequest) error {
	if _, err := c.api.UpdateViewContext(ctx, view, "", hash, viewID); err != nil {
		return &domain.UpstreamCallError{Op: "views.update", Err: err}
	}
	return nil
}

func (c *Client) PostMessage(ctx context.Context, channel, text, threadTS string) (string, error) {
	opts := []slack.MsgOption{
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
		slack.MsgOptionDisableMediaUnfurl(),
	}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, ts, err := c.api.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		return "", &domain.UpstreamCallError{Op: "chat.postMessage", Err: err}
	}
	return ts, nil
}
