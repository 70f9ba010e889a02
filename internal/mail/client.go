package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/rahulpatani/smartinbox/pkg/types"
)

const inboxFolder = "INBOX"

// Client wraps an IMAP connection for one account. It is not safe for
// concurrent use; each session owns exactly one Client and drives it from a
// single goroutine.
type Client struct {
	account *types.Account
	cl      *client.Client
	logger  *logrus.Logger
}

// NewClient creates a new IMAP client (does not connect immediately)
func NewClient(account *types.Account, logger *logrus.Logger) *Client {
	return &Client{
		account: account,
		logger:  logger,
	}
}

// Connect dials the IMAP server, authenticates, and selects INBOX.
func (c *Client) Connect() error {
	addr := fmt.Sprintf("%s:%d", c.account.IMAPHost, c.account.IMAPPort)

	var cl *client.Client
	var err error
	if c.account.UseTLS {
		cl, err = client.DialTLS(addr, &tls.Config{
			ServerName: c.account.IMAPHost,
			MinVersion: tls.VersionTLS12,
		})
	} else {
		cl, err = client.Dial(addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if c.account.AccessToken != "" {
		err = cl.Authenticate(NewXOAuth2Client(c.account.Email, c.account.AccessToken))
	} else {
		err = cl.Login(c.account.Email, c.account.Password)
	}
	if err != nil {
		cl.Logout() //nolint:errcheck
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	if _, err := cl.Select(inboxFolder, true); err != nil {
		cl.Logout() //nolint:errcheck
		return fmt.Errorf("failed to select %s: %w", inboxFolder, err)
	}

	c.cl = cl
	c.logger.WithField("account", c.account.Email).Info("Connected to IMAP server")
	return nil
}

// Close logs out and drops the connection.
func (c *Client) Close() error {
	if c.cl != nil {
		err := c.cl.Logout()
		c.cl = nil
		return err
	}
	return nil
}

// ListSince returns the UIDs of messages dated at or after cutoff, in
// ascending order.
func (c *Client) ListSince(cutoff time.Time) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = cutoff

	uids, err := c.cl.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search mailbox: %w", err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

// Fetch retrieves the raw RFC822 content of a single message by UID. Returns
// an error when the message is not yet available server-side, which happens
// when a push event outruns the message body.
func (c *Client) Fetch(uid uint32) ([]byte, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.cl.UidFetch(seqSet, items, messages)
	}()

	var raw []byte
	for msg := range messages {
		literal := msg.GetBody(section)
		if literal == nil {
			continue
		}
		b, err := io.ReadAll(literal)
		if err != nil {
			return nil, fmt.Errorf("failed to read message body: %w", err)
		}
		raw = b
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", uid, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("message %d not available", uid)
	}
	return raw, nil
}

// NextUID returns the next UID the server will assign in INBOX.
func (c *Client) NextUID() (uint32, error) {
	status, err := c.cl.Status(inboxFolder, []imap.StatusItem{imap.StatusUidNext})
	if err != nil {
		return 0, fmt.Errorf("failed to get mailbox status: %w", err)
	}
	return status.UidNext, nil
}

// WaitNewMail idles until the server signals a mailbox change, then returns
// with the connection ready for commands again. Returns ctx.Err() on
// cancellation.
func (c *Client) WaitNewMail(ctx context.Context) error {
	updates := make(chan client.Update, 8)
	c.cl.Updates = updates
	defer func() { c.cl.Updates = nil }()

	for {
		stop := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- c.cl.Idle(stop, nil)
		}()

		var newMail bool
		select {
		case <-ctx.Done():
			close(stop)
			<-done
			return ctx.Err()
		case upd := <-updates:
			close(stop)
			if err := <-done; err != nil {
				return fmt.Errorf("idle failed: %w", err)
			}
			if _, ok := upd.(*client.MailboxUpdate); ok {
				newMail = true
			}
		case err := <-done:
			// Idle ended on its own (e.g. server timeout); re-enter.
			if err != nil {
				return fmt.Errorf("idle failed: %w", err)
			}
		}

		if newMail {
			return nil
		}
	}
}
