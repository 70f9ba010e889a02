// Package pipeline converts parsed messages into stored, classified,
// indexed records and fans out the side effects. Ingest is idempotent per
// message identifier: the store's UNIQUE constraint is the backstop, the
// pre-insert checks are fast paths.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/rahulpatani/smartinbox/internal/metrics"
	"github.com/rahulpatani/smartinbox/internal/store"
	"github.com/rahulpatani/smartinbox/pkg/types"
)

// Labels that trigger the full side-effect fan-out.
var actionableLabels = map[string]struct{}{
	"interested": {},
}

// Labels that additionally get a reply draft, without notification or
// webhook.
var draftOnlyLabels = map[string]struct{}{
	"meeting booked": {},
	"important":      {},
}

const seenCacheSize = 4096

// MessageStore is the persistence surface the pipeline needs.
type MessageStore interface {
	FindAccount(email string) (*types.Account, error)
	MessageExists(messageID string) (bool, error)
	InsertMessage(msg *types.Message) error
	IndexMessage(msg *types.Message) error
}

// Classifier labels a message by subject and body.
type Classifier interface {
	Classify(ctx context.Context, subject, body string) (string, error)
}

// Notifier posts a human-readable summary of an actionable message.
type Notifier interface {
	Notify(ctx context.Context, msg *types.Message) error
}

// WebhookTrigger posts a structured event for an actionable message.
type WebhookTrigger interface {
	Trigger(ctx context.Context, msg *types.Message) error
}

// DraftGenerator produces and persists a reply draft.
type DraftGenerator interface {
	GenerateForMessage(ctx context.Context, msg *types.Message, userContext string) (*types.Draft, error)
}

// Pipeline orchestrates parse results through dedup, classification,
// persistence, indexing and fan-out.
type Pipeline struct {
	store      MessageStore
	classifier Classifier
	notifier   Notifier
	webhook    WebhookTrigger
	drafts     DraftGenerator
	seen       *lru.Cache[string, struct{}]
	logger     *logrus.Logger
}

// New creates a pipeline.
func New(st MessageStore, classifier Classifier, notifier Notifier, webhook WebhookTrigger, drafts DraftGenerator, logger *logrus.Logger) (*Pipeline, error) {
	seen, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create seen cache: %w", err)
	}
	return &Pipeline{
		store:      st,
		classifier: classifier,
		notifier:   notifier,
		webhook:    webhook,
		drafts:     drafts,
		seen:       seen,
		logger:     logger,
	}, nil
}

// Ingest processes one parsed message for an account. It returns an error
// only when persistence fails; duplicates, classification failures, index
// failures and side-effect failures are absorbed per the error taxonomy.
func (p *Pipeline) Ingest(ctx context.Context, parsed *types.ParsedMail, accountEmail string) error {
	log := p.logger.WithFields(logrus.Fields{
		"account":    accountEmail,
		"message_id": parsed.MessageID,
	})

	if parsed.MessageID == "" {
		log.Warn("Skipping message without identifier")
		return nil
	}

	account, err := p.store.FindAccount(accountEmail)
	if err != nil {
		log.WithError(err).Error("Account lookup failed, message dropped")
		return nil
	}

	// Fast-path dedup: recently seen in this process.
	if _, ok := p.seen.Get(parsed.MessageID); ok {
		metrics.DuplicatesSkipped.Inc()
		log.Debug("Duplicate message skipped (seen cache)")
		return nil
	}

	exists, err := p.store.MessageExists(parsed.MessageID)
	if err != nil {
		log.WithError(err).Error("Dedup check failed")
		return fmt.Errorf("dedup check failed: %w", err)
	}
	if exists {
		p.seen.Add(parsed.MessageID, struct{}{})
		metrics.DuplicatesSkipped.Inc()
		log.Debug("Duplicate message skipped")
		return nil
	}

	// Classification degrades to an empty label; the message is stored
	// either way.
	label, err := p.classifier.Classify(ctx, parsed.Subject, parsed.Body)
	if err != nil {
		metrics.ClassifyFailures.Inc()
		log.WithError(err).Error("Classification failed, storing unlabeled")
		label = ""
	}

	msg := &types.Message{
		MessageID:    parsed.MessageID,
		Subject:      subjectOrDefault(parsed.Subject),
		From:         parsed.From,
		To:           parsed.To,
		Date:         parsed.Date,
		Body:         parsed.Body,
		Folder:       "INBOX",
		Label:        label,
		AccountEmail: account.Email,
	}

	if err := p.store.InsertMessage(msg); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost the race against a concurrent ingest of the same
			// identifier; the constraint did its job.
			p.seen.Add(parsed.MessageID, struct{}{})
			metrics.DuplicatesSkipped.Inc()
			log.Debug("Duplicate message skipped (insert race)")
			return nil
		}
		log.WithError(err).Error("Failed to store message, ingestion aborted")
		return fmt.Errorf("failed to store message: %w", err)
	}
	p.seen.Add(parsed.MessageID, struct{}{})
	metrics.MessagesIngested.Inc()
	log.WithField("label", label).Info("Message stored")

	if err := p.store.IndexMessage(msg); err != nil {
		metrics.IndexFailures.Inc()
		log.WithError(err).Error("Failed to index message")
	}

	p.fanOut(ctx, msg, log)
	return nil
}

func (p *Pipeline) fanOut(ctx context.Context, msg *types.Message, log *logrus.Entry) {
	normalized := strings.ToLower(msg.Label)
	_, actionable := actionableLabels[normalized]
	_, draftOnly := draftOnlyLabels[normalized]
	if !actionable && !draftOnly {
		return
	}

	var tasks []Task
	if actionable {
		tasks = append(tasks,
			Task{Name: "notification", Run: func(ctx context.Context) error {
				return p.notifier.Notify(ctx, msg)
			}},
			Task{Name: "webhook", Run: func(ctx context.Context) error {
				return p.webhook.Trigger(ctx, msg)
			}},
		)
	}
	tasks = append(tasks, Task{Name: "draft", Run: func(ctx context.Context) error {
		_, err := p.drafts.GenerateForMessage(ctx, msg, "")
		return err
	}})

	outcomes := Dispatch(ctx, p.logger, tasks)

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	log.WithFields(logrus.Fields{
		"label":       msg.Label,
		"dispatchers": len(outcomes),
		"failed":      failed,
	}).Info("Side-effect fan-out complete")
}

func subjectOrDefault(subject string) string {
	if subject == "" {
		return "(no subject)"
	}
	return subject
}
