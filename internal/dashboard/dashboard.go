// Package dashboard serves the dashboard summary, computing it locally from
// the cached collections when the finance service cannot.
package dashboard

import (
	"context"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/remote"
	"fintrack/internal/session"
	"fintrack/internal/store"
)

// Source fetches the summary computed by the finance service.
type Source interface {
	Dashboard(ctx context.Context, sess session.Session) (core.DashboardSummary, error)
}

var _ Source = (*remote.Client)(nil)

// Result is a dashboard summary and where it came from.
type Result struct {
	core.DashboardSummary
	// Local is set when the summary was computed from cached collections.
	Local bool
	// Cause is the service failure that led to a local summary.
	Cause error
}

type Service struct {
	source   Source
	sessions session.Provider
	ws       *store.Workspace
	logger   *log.Logger
}

// NewService creates a Service. ws may be nil, which disables the local fallback.
func NewService(source Source, sessions session.Provider, ws *store.Workspace, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		source:   source,
		sessions: sessions,
		ws:       ws,
		logger:   logger.WithComponent(log.ComponentDashboard),
	}
}

// Summary asks the service for the dashboard of the signed-in user. On a
// transport failure it falls back to the cached collections of that user.
// Missing sessions, rejected credentials and cancellation are returned as is.
func (s *Service) Summary(ctx context.Context) (Result, error) {
	sess, err := s.sessions.Current(ctx)
	if err != nil {
		return Result{}, err
	}

	sum, err := s.source.Dashboard(ctx, sess)
	if err == nil {
		return Result{DashboardSummary: sum}, nil
	}
	if !s.canFallBack(ctx, sess, err) {
		return Result{}, err
	}

	s.logger.WarnContext(ctx, "Dashboard unavailable, using cached collections",
		log.FieldUserID, sess.UserID,
		log.FieldError, err)
	return Result{DashboardSummary: s.ws.Summary(), Local: true, Cause: err}, nil
}

func (s *Service) canFallBack(ctx context.Context, sess session.Session, err error) bool {
	if s.ws == nil || ctx.Err() != nil || !errors.Is(err, remote.ErrTransport) {
		return false
	}
	switch remote.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return false
	}
	// Every cached collection must be the user's; at least one must exist.
	owned := false
	for _, owner := range []string{s.ws.Transactions.Owner(), s.ws.Assets.Owner(), s.ws.Liabilities.Owner()} {
		switch owner {
		case "":
		case sess.UserID:
			owned = true
		default:
			return false
		}
	}
	return owned
}
