package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rahulpatani/smartinbox/internal/metrics"
	"github.com/rahulpatani/smartinbox/pkg/retry"
	"github.com/rahulpatani/smartinbox/pkg/types"
)

// ManagerConfig wires the manager's collaborators.
type ManagerConfig struct {
	Accounts AccountSource
	Dial     Dialer
	Ingestor Ingestor
	Parse    Parser

	// Lookback is the backfill window. Defaults to 30 days.
	Lookback time.Duration

	// Retrier bounds the watcher's fetch retries.
	Retrier retry.Retrier
}

// Manager is the process-wide session registry. It guarantees at most one
// live session per account and owns the session lifecycle.
type Manager struct {
	cfg    ManagerConfig
	logger *logrus.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	wg sync.WaitGroup
}

// NewManager creates a connection manager.
func NewManager(cfg ManagerConfig, logger *logrus.Logger) *Manager {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 30 * 24 * time.Hour
	}
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// StartSession opens a mailbox session for the account. Idempotent: if a
// live session already exists for the account's email, it returns without
// creating a second one. On connection failure the account is left
// unregistered and the error returned; there is no automatic retry.
//
// The registration covers the dial window, so a concurrent call that
// observes the reservation returns success while the first caller's dial is
// still in flight and may yet fail. Callers needing certainty consult
// ActiveSessions after the original call resolves.
func (m *Manager) StartSession(ctx context.Context, account *types.Account) error {
	m.mu.Lock()
	if _, exists := m.sessions[account.Email]; exists {
		m.mu.Unlock()
		m.logger.WithField("account", account.Email).Debug("Session already active")
		return nil
	}
	// Register before dialing so a concurrent StartSession for the same
	// account cannot open a second connection.
	sess := &Session{
		account: *account,
		log:     m.logger.WithField("account", account.Email),
	}
	m.sessions[account.Email] = sess
	m.mu.Unlock()

	mailbox, err := m.cfg.Dial(account)
	if err != nil {
		m.remove(account.Email)
		sess.log.WithError(err).Error("Failed to open mailbox session")
		return fmt.Errorf("failed to open mailbox for %s: %w", account.Email, err)
	}
	sess.mailbox = mailbox

	metrics.SessionsActive.Inc()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer metrics.SessionsActive.Dec()
		defer m.remove(account.Email)
		defer mailbox.Close()
		m.runSession(ctx, sess)
		sess.log.Info("Session ended")
	}()

	sess.log.Info("Session started")
	return nil
}

// StartAll starts a session for every known account. A failure for one
// account never aborts the others.
func (m *Manager) StartAll(ctx context.Context) error {
	accounts, err := m.cfg.Accounts.ListAccounts()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	for i := range accounts {
		if err := m.StartSession(ctx, &accounts[i]); err != nil {
			// Already logged with the account attached; move on.
			continue
		}
	}
	return nil
}

// ActiveSessions returns the emails of accounts with a live session.
func (m *Manager) ActiveSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	emails := make([]string, 0, len(m.sessions))
	for email := range m.sessions {
		emails = append(emails, email)
	}
	return emails
}

// Wait blocks until all session goroutines have finished. Cancel the
// context passed to StartSession/StartAll first.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) remove(email string) {
	m.mu.Lock()
	delete(m.sessions, email)
	m.mu.Unlock()
}

// runSession drains history, then stays attached handling push events until
// the context is canceled or the connection fails. All mailbox commands run
// on this goroutine: events for one session are serialized by construction.
func (m *Manager) runSession(ctx context.Context, s *Session) {
	m.backfill(ctx, s)

	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.mailbox.WaitNewMail(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			s.log.WithError(err).Error("Mailbox watch ended")
			return
		}
		m.handleNewMail(ctx, s)
	}
}
