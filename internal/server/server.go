// Package server is the thin HTTP boundary over the ledger core. It decodes
// requests, resolves the authenticated principal, maps error kinds to HTTP
// statuses and publishes ledger-changed events after successful commits.
// Authentication itself happens upstream; this layer trusts the principal
// header set by the gateway.
package server

import (
	"time"

	"go.uber.org/zap"

	"github.com/ledgerbook/ledgerbook/internal/interfaces"
	"github.com/ledgerbook/ledgerbook/internal/ledger"
	"github.com/ledgerbook/ledgerbook/internal/models/events"
)

type Server struct {
	ledger *ledger.Ledger
	events interfaces.EventPublisher // nil disables publishing
	log    *zap.Logger
}

func New(l *ledger.Ledger, publisher interfaces.EventPublisher, log *zap.Logger) *Server {
	return &Server{ledger: l, events: publisher, log: log}
}

// publish announces a committed change. Failures are logged and swallowed;
// the operation itself already succeeded.
func (s *Server) publish(event, userID, transactionID string) {
	if s.events == nil {
		return
	}
	payload := events.LedgerChanged{
		Event:         event,
		UserID:        userID,
		TransactionID: transactionID,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.events.Publish(event, payload); err != nil {
		s.log.Warn("event publish failed",
			zap.String("event", event),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}
