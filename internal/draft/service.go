package draft

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rahulpatani/smartinbox/pkg/types"
)

// Replier produces a reply draft for a message. Implemented by *Generator;
// tests substitute a fake.
type Replier interface {
	DraftReply(ctx context.Context, msg *types.Message) (*types.Draft, error)
	ContextualReply(ctx context.Context, msg *types.Message, userContext string) (*types.Draft, error)
}

// DraftStore persists generated drafts.
type DraftStore interface {
	InsertDraft(d *types.Draft) error
}

// Service generates reply drafts and persists them.
type Service struct {
	replier Replier
	store   DraftStore
	logger  *logrus.Logger
}

// NewService creates a draft service.
func NewService(replier Replier, store DraftStore, logger *logrus.Logger) *Service {
	return &Service{
		replier: replier,
		store:   store,
		logger:  logger,
	}
}

// GenerateForMessage produces and persists a reply draft for the message.
// With userContext set, generation is personalized to it. Returns (nil, nil)
// when generation is disabled, which callers treat as "feature off", not an
// error.
func (s *Service) GenerateForMessage(ctx context.Context, msg *types.Message, userContext string) (*types.Draft, error) {
	var d *types.Draft
	var err error
	if userContext != "" {
		d, err = s.replier.ContextualReply(ctx, msg, userContext)
	} else {
		d, err = s.replier.DraftReply(ctx, msg)
	}
	if err != nil {
		return nil, fmt.Errorf("draft generation failed: %w", err)
	}
	if d == nil {
		return nil, nil
	}

	d.ID = uuid.NewString()
	if err := s.store.InsertDraft(d); err != nil {
		return nil, fmt.Errorf("failed to persist draft: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"draft_id":   d.ID,
		"message_id": d.OriginalMessageID,
		"category":   d.Category,
	}).Info("Draft saved")
	return d, nil
}
