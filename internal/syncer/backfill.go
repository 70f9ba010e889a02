package syncer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// backfill drains the lookback window into the ingestion pipeline,
// sequentially in ascending UID order. A fetch or parse failure for one UID
// is logged and skipped; the rest of the backfill proceeds. The
// high-water-mark ends at the greatest successfully processed UID.
func (m *Manager) backfill(ctx context.Context, s *Session) {
	cutoff := time.Now().Add(-m.cfg.Lookback)

	uids, err := s.mailbox.ListSince(cutoff)
	if err != nil {
		s.log.WithError(err).Error("Backfill listing failed")
		return
	}

	processed := 0
	for _, uid := range uids {
		if ctx.Err() != nil {
			return
		}

		raw, err := s.mailbox.Fetch(uid)
		if err != nil {
			s.log.WithError(err).WithField("uid", uid).Warn("Backfill fetch failed, skipping")
			continue
		}

		parsed, err := m.cfg.Parse(raw)
		if err != nil {
			s.log.WithError(err).WithField("uid", uid).Warn("Backfill parse failed, skipping")
			continue
		}

		if err := m.cfg.Ingestor.Ingest(ctx, parsed, s.account.Email); err != nil {
			s.log.WithError(err).WithField("uid", uid).Warn("Backfill ingestion failed, skipping")
			continue
		}

		s.advance(uid)
		processed++
	}

	s.log.WithFields(logrus.Fields{
		"found":     len(uids),
		"processed": processed,
		"cutoff":    cutoff.Format(time.RFC3339),
	}).Info("Backfill complete")
}
