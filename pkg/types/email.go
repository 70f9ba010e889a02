package types

import "time"

// Account holds the identity, credentials and connection parameters for one
// mailbox. Accounts are created and refreshed by the OAuth exchange flow;
// the sync core only reads them.
type Account struct {
	Email        string     `json:"email"`
	Provider     string     `json:"provider"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenExpiry  *time.Time `json:"token_expiry,omitempty"`
	Password     string     `json:"-"`
	IMAPHost     string     `json:"imap_host"`
	IMAPPort     int        `json:"imap_port"`
	UseTLS       bool       `json:"use_tls"`
}

// ParsedMail is the structured form of a raw transport message, produced by
// the message parser before ingestion.
type ParsedMail struct {
	MessageID string
	Subject   string
	From      string
	To        string
	Date      time.Time
	Body      string
}

// Message is a fully ingested email. MessageID is the provider-assigned
// identifier and is unique: a second message carrying the same identifier is
// a duplicate and is never stored twice.
type Message struct {
	ID           int64     `json:"id"`
	MessageID    string    `json:"message_id"`
	Subject      string    `json:"subject"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Date         time.Time `json:"date"`
	Body         string    `json:"body,omitempty"`
	Folder       string    `json:"folder"`
	Label        string    `json:"label"`
	Read         bool      `json:"read"`
	Starred      bool      `json:"starred"`
	Archived     bool      `json:"archived"`
	Priority     string    `json:"priority,omitempty"`
	AccountEmail string    `json:"account"`
	StoredAt     time.Time `json:"stored_at"`
}

// Draft statuses. A draft starts as "draft" and is moved along by user
// action outside the sync core.
const (
	DraftStatusDraft     = "draft"
	DraftStatusSent      = "sent"
	DraftStatusEdited    = "edited"
	DraftStatusDiscarded = "discarded"
)

// Draft is an AI-generated reply tied to the message that triggered it.
type Draft struct {
	ID                string    `json:"id"`
	OriginalMessageID string    `json:"original_message_id"`
	OriginalSubject   string    `json:"original_subject"`
	OriginalFrom      string    `json:"original_from"`
	Subject           string    `json:"draft_subject"`
	Body              string    `json:"draft_body"`
	AIModel           string    `json:"ai_model"`
	Status            string    `json:"status"`
	Context           string    `json:"context,omitempty"`
	Category          string    `json:"category"`
	AccountEmail      string    `json:"account"`
	GeneratedAt       time.Time `json:"generated_at"`
}
