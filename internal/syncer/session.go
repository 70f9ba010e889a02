// Package syncer owns mailbox sessions: one per account, each running
// backfill followed by a real-time watch loop. Sessions are registered in a
// process-wide manager that guarantees at most one live session per account.
package syncer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rahulpatani/smartinbox/pkg/types"
)

// Mailbox is the transport surface a session drives. Implemented by
// *mail.Client.
type Mailbox interface {
	// ListSince returns UIDs dated at or after cutoff, ascending.
	ListSince(cutoff time.Time) ([]uint32, error)
	// Fetch returns the raw RFC822 content of one message.
	Fetch(uid uint32) ([]byte, error)
	// NextUID returns the next UID the server will assign.
	NextUID() (uint32, error)
	// WaitNewMail blocks until the server signals new mail or ctx is done.
	WaitNewMail(ctx context.Context) error
	Close() error
}

// Ingestor forwards parsed messages into the ingestion pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, parsed *types.ParsedMail, accountEmail string) error
}

// Parser converts raw transport bytes into a structured record.
type Parser func(raw []byte) (*types.ParsedMail, error)

// Dialer opens a connected mailbox for an account.
type Dialer func(account *types.Account) (Mailbox, error)

// AccountSource lists the accounts known to the system.
type AccountSource interface {
	ListAccounts() ([]types.Account, error)
}

// Session is the runtime state of one account's open mailbox: the live
// connection plus the high-water-mark of the last processed message. It is
// never persisted and never shared across accounts.
//
// The high-water-mark has a single writer: the session goroutine. Backfill
// runs to completion on that goroutine before the first watcher event is
// handled, so backfill updates happen-before every watcher comparison.
type Session struct {
	account types.Account
	mailbox Mailbox
	hwm     uint32
	log     *logrus.Entry
}

// Account returns the owning account.
func (s *Session) Account() types.Account {
	return s.account
}

// HighWaterMark returns the highest UID known to be fully ingested.
func (s *Session) HighWaterMark() uint32 {
	return s.hwm
}

func (s *Session) advance(uid uint32) {
	if uid > s.hwm {
		s.hwm = uid
	}
}
