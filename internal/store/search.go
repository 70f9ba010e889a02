package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/rahulpatani/smartinbox/pkg/types"
)

// SearchOptions contains search parameters
type SearchOptions struct {
	Query        string // full-text query against subject/sender/body
	AccountEmail string
	Folder       string
	Label        string
	DateFrom     *time.Time
	DateTo       *time.Time
	Limit        int
	Offset       int
}

// ftsMatchQuery turns free-form user input into an FTS5 MATCH expression.
// Each whitespace-separated term becomes a quoted string, so operator
// characters in the input cannot produce a syntax error.
func ftsMatchQuery(q string) string {
	terms := strings.Fields(q)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

// Search queries stored messages. Full-text terms go through the FTS index;
// the remaining filters are plain column predicates. Results are newest
// first.
func (s *Store) Search(opts SearchOptions) ([]types.Message, error) {
	var conditions []string
	var args []interface{}

	if match := ftsMatchQuery(opts.Query); match != "" {
		conditions = append(conditions, "m.id IN (SELECT rowid FROM messages_fts WHERE messages_fts MATCH ?)")
		args = append(args, match)
	}
	if opts.AccountEmail != "" {
		conditions = append(conditions, "m.account_email = ?")
		args = append(args, opts.AccountEmail)
	}
	if opts.Folder != "" {
		conditions = append(conditions, "m.folder = ?")
		args = append(args, opts.Folder)
	}
	if opts.Label != "" {
		conditions = append(conditions, "LOWER(m.label) = LOWER(?)")
		args = append(args, opts.Label)
	}
	if opts.DateFrom != nil {
		conditions = append(conditions, "m.date >= ?")
		args = append(args, opts.DateFrom.UTC().Format(time.RFC3339))
	}
	if opts.DateTo != nil {
		conditions = append(conditions, "m.date <= ?")
		args = append(args, opts.DateTo.UTC().Format(time.RFC3339))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT m.id, m.message_id, m.subject, m.sender, m.recipient, m.date, m.folder, m.label, m.read, m.starred, m.archived, m.priority, m.account_email, m.stored_at
		FROM messages m
		%s
		ORDER BY m.date DESC
		LIMIT ? OFFSET ?
	`, whereClause)

	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	var results []types.Message
	for rows.Next() {
		var msg types.Message
		var dateStr, storedStr string
		var read, starred, archived int

		err := rows.Scan(
			&msg.ID, &msg.MessageID, &msg.Subject, &msg.From, &msg.To, &dateStr,
			&msg.Folder, &msg.Label, &read, &starred, &archived, &msg.Priority,
			&msg.AccountEmail, &storedStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.Read, msg.Starred, msg.Archived = read != 0, starred != 0, archived != 0
		if msg.Date, err = parseStoredTime(dateStr); err != nil {
			msg.Date = time.Time{}
		}
		if msg.StoredAt, err = parseStoredTime(storedStr); err != nil {
			msg.StoredAt = time.Time{}
		}

		results = append(results, msg)
	}

	return results, rows.Err()
}
