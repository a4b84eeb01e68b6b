// Package httpadapter is the inbound edge: one endpoint receiving
// Slack slash commands, Slack interactions and Pipedrive webhooks,
// routed by payload shape rather than by path because all three
// senders are pointed at the same URL.
package httpadapter

import (
	"errors"
	"io"
	"net/http"

	"github.com/slack-go/slack"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/app/classifier"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/app/notify"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/app/payload"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/app/workflow"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/domain"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/observability"
)

type Server struct {
	workflow *workflow.Service
	notifier *notify.Service
}

func NewServer(wf *workflow.Service, notifier *notify.Service) http.Handler {
	s := &Server{workflow: wf, notifier: notifier}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)

	return chainMiddlewares(mux, withLogging, withRequestID)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writePlain(w, http.StatusOK, "pipedrive-slack-notification is running")
	case http.MethodPost:
		s.handlePost(w, r)
	default:
		writePlain(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handlePost normalizes the body and routes it: interaction payloads
// to the workflow engine, slash commands to the modal opener, and
// everything else through the webhook classifier. Known error kinds
// answer 200 with a readable message because Slack and Pipedrive both
// retry non-200 responses.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("body read failed", "error", err)
		writePlain(w, http.StatusOK, "")
		return
	}

	n := payload.Normalize(ctx, raw)

	switch {
	case n.Interaction != nil:
		switch n.Interaction.Type {
		case slack.InteractionTypeBlockActions:
			err = s.workflow.HandleBlockActions(ctx, n.Interaction)
		case slack.InteractionTypeViewSubmission:
			err = s.workflow.HandleSubmission(ctx, n.Interaction)
		default:
			// other interaction kinds are no-ops for this app
		}

	case n.Command != "" && n.TriggerID != "":
		err = s.workflow.Open(ctx, n.TriggerID)

	default:
		ev := classifier.Classify(ctx, n.Webhook)
		err = s.notifier.HandleEvent(ctx, ev)
	}

	s.writeOutcome(w, r, err)
}

func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		writePlain(w, http.StatusOK, "")
		return
	}

	log := observability.LoggerFromContext(r.Context())

	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		log.Error("request rejected by configuration", "missing", cfgErr.Missing)
		writePlain(w, http.StatusOK, "設定が不足しています: "+cfgErr.Missing)
		return
	}

	var dataErr *domain.UpstreamDataError
	if errors.As(err, &dataErr) {
		log.Error("upstream data unavailable", "error", dataErr)
		writePlain(w, http.StatusOK, dataErr.Msg)
		return
	}

	var callErr *domain.UpstreamCallError
	if errors.As(err, &callErr) {
		log.Error("chat api call failed", "op", callErr.Op, "error", callErr.Err)
		writePlain(w, http.StatusOK, "Slackの呼び出しに失敗しました")
		return
	}

	log.Error("request failed", "error", err)
	writePlain(w, http.StatusInternalServerError, "internal server error")
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
