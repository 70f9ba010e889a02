package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rahulpatani/smartinbox/pkg/types"
)

// ErrDuplicate is returned by InsertMessage when a message with the same
// identifier is already stored. Callers absorb it: a duplicate is not a
// failure.
var ErrDuplicate = errors.New("message already stored")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// UpsertAccount inserts or updates an account keyed by email address.
func (s *Store) UpsertAccount(acc *types.Account) error {
	var expiry interface{}
	if acc.TokenExpiry != nil {
		expiry = acc.TokenExpiry.UTC().Format(time.RFC3339)
	}

	query := `
		INSERT INTO accounts (email, provider, access_token, refresh_token, token_expiry, password, imap_host, imap_port, use_tls, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(email) DO UPDATE SET
			provider = excluded.provider,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expiry = excluded.token_expiry,
			password = excluded.password,
			imap_host = excluded.imap_host,
			imap_port = excluded.imap_port,
			use_tls = excluded.use_tls,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.Exec(query, acc.Email, acc.Provider, acc.AccessToken, acc.RefreshToken, expiry,
		acc.Password, acc.IMAPHost, acc.IMAPPort, boolToInt(acc.UseTLS))
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

// FindAccount returns the account with the given email, or ErrNotFound.
func (s *Store) FindAccount(email string) (*types.Account, error) {
	row := s.db.QueryRow(`
		SELECT email, provider, access_token, refresh_token, token_expiry, password, imap_host, imap_port, use_tls
		FROM accounts WHERE email = ?`, email)
	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return acc, nil
}

// ListAccounts returns all known accounts.
func (s *Store) ListAccounts() ([]types.Account, error) {
	rows, err := s.db.Query(`
		SELECT email, provider, access_token, refresh_token, token_expiry, password, imap_host, imap_port, use_tls
		FROM accounts ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []types.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *acc)
	}
	return accounts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*types.Account, error) {
	var acc types.Account
	var expiry sql.NullString
	var useTLS int
	if err := row.Scan(&acc.Email, &acc.Provider, &acc.AccessToken, &acc.RefreshToken, &expiry,
		&acc.Password, &acc.IMAPHost, &acc.IMAPPort, &useTLS); err != nil {
		return nil, err
	}
	acc.UseTLS = useTLS != 0
	if expiry.Valid && expiry.String != "" {
		if t, err := parseStoredTime(expiry.String); err == nil {
			acc.TokenExpiry = &t
		}
	}
	return &acc, nil
}

// MessageExists reports whether a message with the given identifier is stored.
func (s *Store) MessageExists(messageID string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM messages WHERE message_id = ?", messageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check message existence: %w", err)
	}
	return true, nil
}

// InsertMessage stores a message. Returns ErrDuplicate when the identifier is
// already present; the row is left untouched in that case.
func (s *Store) InsertMessage(msg *types.Message) error {
	if msg.StoredAt.IsZero() {
		msg.StoredAt = time.Now().UTC()
	}
	query := `
		INSERT INTO messages (message_id, subject, sender, recipient, date, body, folder, label, read, starred, archived, priority, account_email, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query,
		msg.MessageID,
		msg.Subject,
		msg.From,
		msg.To,
		msg.Date.UTC().Format(time.RFC3339),
		msg.Body,
		msg.Folder,
		msg.Label,
		boolToInt(msg.Read),
		boolToInt(msg.Starred),
		boolToInt(msg.Archived),
		msg.Priority,
		msg.AccountEmail,
		msg.StoredAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		msg.ID = id
	}
	return nil
}

// IndexMessage writes a message into the full-text search index. The message
// must already be persisted; an index failure does not affect the stored row.
func (s *Store) IndexMessage(msg *types.Message) error {
	if msg.ID == 0 {
		return fmt.Errorf("cannot index message %s: not persisted", msg.MessageID)
	}
	_, err := s.db.Exec(`
		INSERT INTO messages_fts (rowid, subject, sender, body)
		VALUES (?, ?, ?, ?)`,
		msg.ID, msg.Subject, msg.From, msg.Body)
	if err != nil {
		return fmt.Errorf("failed to index message: %w", err)
	}
	return nil
}

// GetMessage retrieves a message by its row ID.
func (s *Store) GetMessage(id int64) (*types.Message, error) {
	return s.getMessage("id = ?", id)
}

// GetMessageByMessageID retrieves a message by its provider identifier.
func (s *Store) GetMessageByMessageID(messageID string) (*types.Message, error) {
	return s.getMessage("message_id = ?", messageID)
}

func (s *Store) getMessage(where string, arg interface{}) (*types.Message, error) {
	query := fmt.Sprintf(`
		SELECT id, message_id, subject, sender, recipient, date, body, folder, label, read, starred, archived, priority, account_email, stored_at
		FROM messages WHERE %s`, where)

	var msg types.Message
	var dateStr, storedStr string
	var read, starred, archived int
	err := s.db.QueryRow(query, arg).Scan(
		&msg.ID, &msg.MessageID, &msg.Subject, &msg.From, &msg.To, &dateStr, &msg.Body,
		&msg.Folder, &msg.Label, &read, &starred, &archived, &msg.Priority,
		&msg.AccountEmail, &storedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	msg.Read, msg.Starred, msg.Archived = read != 0, starred != 0, archived != 0
	if msg.Date, err = parseStoredTime(dateStr); err != nil {
		return nil, fmt.Errorf("failed to parse message date: %w", err)
	}
	if msg.StoredAt, err = parseStoredTime(storedStr); err != nil {
		return nil, fmt.Errorf("failed to parse stored_at: %w", err)
	}
	return &msg, nil
}

// CountMessages returns the number of stored messages for an account.
func (s *Store) CountMessages(accountEmail string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM messages WHERE account_email = ?", accountEmail).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

// UpdateLabel sets the classification label on a stored message.
func (s *Store) UpdateLabel(messageID, label string) error {
	_, err := s.db.Exec("UPDATE messages SET label = ? WHERE message_id = ?", label, messageID)
	if err != nil {
		return fmt.Errorf("failed to update label: %w", err)
	}
	return nil
}

// UpdateFlags sets the user flags on a stored message.
func (s *Store) UpdateFlags(messageID string, read, starred, archived bool) error {
	_, err := s.db.Exec("UPDATE messages SET read = ?, starred = ?, archived = ? WHERE message_id = ?",
		boolToInt(read), boolToInt(starred), boolToInt(archived), messageID)
	if err != nil {
		return fmt.Errorf("failed to update flags: %w", err)
	}
	return nil
}

// InsertDraft stores a generated draft.
func (s *Store) InsertDraft(d *types.Draft) error {
	if d.GeneratedAt.IsZero() {
		d.GeneratedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO drafts (id, original_message_id, original_subject, original_sender, draft_subject, draft_body, ai_model, status, context, category, account_email, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		d.ID, d.OriginalMessageID, d.OriginalSubject, d.OriginalFrom,
		d.Subject, d.Body, d.AIModel, d.Status, d.Context, d.Category,
		d.AccountEmail, d.GeneratedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert draft: %w", err)
	}
	return nil
}

// ListDrafts returns drafts, newest first, optionally filtered by status.
func (s *Store) ListDrafts(status string, limit int) ([]types.Draft, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, original_message_id, original_subject, original_sender, draft_subject, draft_body, ai_model, status, context, category, account_email, generated_at
		FROM drafts
	`
	var args []interface{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY generated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []types.Draft
	for rows.Next() {
		var d types.Draft
		var genStr string
		if err := rows.Scan(&d.ID, &d.OriginalMessageID, &d.OriginalSubject, &d.OriginalFrom,
			&d.Subject, &d.Body, &d.AIModel, &d.Status, &d.Context, &d.Category,
			&d.AccountEmail, &genStr); err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		if d.GeneratedAt, err = parseStoredTime(genStr); err != nil {
			return nil, fmt.Errorf("failed to parse generated_at: %w", err)
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

// UpdateDraftStatus moves a draft through its lifecycle.
func (s *Store) UpdateDraftStatus(id, status string) error {
	res, err := s.db.Exec("UPDATE drafts SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update draft status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseStoredTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02 15:04:05", s)
	}
	return t, err
}
