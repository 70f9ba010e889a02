package syncer

import (
	"context"

	"github.com/rahulpatani/smartinbox/internal/metrics"
)

// handleNewMail resolves one push event into a candidate message and feeds
// it through the pipeline. The event alone does not carry the new
// identifier, so the candidate is derived as next-assignable minus one. When
// more than one message arrives between consecutive events this can miss
// all but the newest; the diff-against-high-water-mark alternative changes
// observable behavior and is deliberately not done here.
func (m *Manager) handleNewMail(ctx context.Context, s *Session) {
	next, err := s.mailbox.NextUID()
	if err != nil {
		s.log.WithError(err).Warn("Failed to resolve next UID, event dropped")
		return
	}
	candidate := next - 1

	// Stale or duplicate event: multiple events can fire for one arrival,
	// and the push signal can lag the mailbox state.
	if candidate <= s.hwm {
		s.log.WithField("uid", candidate).Debug("Stale push event discarded")
		return
	}

	log := s.log.WithField("uid", candidate)
	log.Info("New message detected")

	// The push event can outrun the message body server-side, so the fetch
	// is retried on a bounded budget. Exhaustion drops the event without
	// advancing the high-water-mark; a later event for the same or a higher
	// UID can still succeed.
	var raw []byte
	err = m.cfg.Retrier.Do(ctx, func() error {
		var fetchErr error
		raw, fetchErr = s.mailbox.Fetch(candidate)
		return fetchErr
	})
	if err != nil {
		metrics.FetchRetriesExhausted.Inc()
		log.WithError(err).Error("Fetch retries exhausted, event dropped")
		return
	}

	parsed, err := m.cfg.Parse(raw)
	if err != nil {
		log.WithError(err).Warn("Failed to parse new message, event dropped")
		return
	}

	if err := m.cfg.Ingestor.Ingest(ctx, parsed, s.account.Email); err != nil {
		// The message was fetched and forwarded; a store failure is fatal
		// for this message only and is not retried.
		log.WithError(err).Error("Ingestion failed for new message")
	}
	s.advance(candidate)
}
