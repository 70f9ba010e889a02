package store

// Schema contains the SQL schema definitions for the persistent store.
//
// messages.message_id carries the UNIQUE constraint that backs the
// exactly-once ingestion guarantee: the pre-insert existence check is only a
// fast path, the constraint is what actually rejects racing duplicates.
//
// messages_fts is the search index. It is written by an explicit IndexMessage
// call rather than triggers, so a failed index write never rolls back a
// persisted message; the two are eventually consistent.
const Schema = `
-- Accounts table
CREATE TABLE IF NOT EXISTS accounts (
    email TEXT PRIMARY KEY,
    provider TEXT NOT NULL,
    access_token TEXT DEFAULT '',
    refresh_token TEXT DEFAULT '',
    token_expiry TEXT,
    password TEXT DEFAULT '',
    imap_host TEXT NOT NULL,
    imap_port INTEGER NOT NULL,
    use_tls INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Messages table
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    message_id TEXT NOT NULL UNIQUE,
    subject TEXT DEFAULT '',
    sender TEXT DEFAULT '',
    recipient TEXT DEFAULT '',
    date TEXT NOT NULL,
    body TEXT DEFAULT '',
    folder TEXT DEFAULT 'INBOX',
    label TEXT DEFAULT '',
    read INTEGER DEFAULT 0,
    starred INTEGER DEFAULT 0,
    archived INTEGER DEFAULT 0,
    priority TEXT DEFAULT '',
    account_email TEXT NOT NULL,
    stored_at TEXT NOT NULL,
    FOREIGN KEY (account_email) REFERENCES accounts(email) ON DELETE CASCADE
);

-- Drafts table
CREATE TABLE IF NOT EXISTS drafts (
    id TEXT PRIMARY KEY,
    original_message_id TEXT NOT NULL,
    original_subject TEXT DEFAULT '',
    original_sender TEXT DEFAULT '',
    draft_subject TEXT DEFAULT '',
    draft_body TEXT NOT NULL,
    ai_model TEXT DEFAULT '',
    status TEXT NOT NULL DEFAULT 'draft',
    context TEXT DEFAULT '',
    category TEXT DEFAULT '',
    account_email TEXT NOT NULL,
    generated_at TEXT NOT NULL,
    FOREIGN KEY (account_email) REFERENCES accounts(email) ON DELETE CASCADE
);

-- Indexes for the common query paths
CREATE INDEX IF NOT EXISTS idx_messages_account ON messages(account_email);
CREATE INDEX IF NOT EXISTS idx_messages_date ON messages(date);
CREATE INDEX IF NOT EXISTS idx_messages_label ON messages(label);
CREATE INDEX IF NOT EXISTS idx_drafts_original ON drafts(original_message_id);
CREATE INDEX IF NOT EXISTS idx_drafts_status ON drafts(status);
CREATE INDEX IF NOT EXISTS idx_drafts_generated_at ON drafts(generated_at);

-- Full-text search index, written explicitly by IndexMessage
CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    subject,
    sender,
    body,
    content='messages',
    content_rowid='id'
);
`
