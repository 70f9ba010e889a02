package store

import (
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulpatani/smartinbox/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testAccount(email string) *types.Account {
	return &types.Account{
		Email:    email,
		Provider: "imap",
		Password: "secret",
		IMAPHost: "imap.example.com",
		IMAPPort: 993,
		UseTLS:   true,
	}
}

func testMessage(messageID, account string) *types.Message {
	return &types.Message{
		MessageID:    messageID,
		Subject:      "Quarterly planning",
		From:         "alice@example.com",
		To:           account,
		Date:         time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC),
		Body:         "Let's schedule the quarterly planning call.",
		Folder:       "INBOX",
		AccountEmail: account,
	}
}

func TestUpsertAccountKeepsOneRecordPerEmail(t *testing.T) {
	s := newTestStore(t)

	acc := testAccount("a@x.com")
	require.NoError(t, s.UpsertAccount(acc))

	acc.Password = "rotated"
	require.NoError(t, s.UpsertAccount(acc))

	accounts, err := s.ListAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "rotated", accounts[0].Password)

	found, err := s.FindAccount("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "imap.example.com", found.IMAPHost)
	assert.True(t, found.UseTLS)
}

func TestFindAccountNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FindAccount("nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertMessageRejectsDuplicateIdentifier(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertAccount(testAccount("a@x.com")))

	msg := testMessage("msg-1@mail.example", "a@x.com")
	require.NoError(t, s.InsertMessage(msg))
	assert.NotZero(t, msg.ID)

	exists, err := s.MessageExists("msg-1@mail.example")
	require.NoError(t, err)
	assert.True(t, exists)

	dup := testMessage("msg-1@mail.example", "a@x.com")
	assert.ErrorIs(t, s.InsertMessage(dup), ErrDuplicate)

	count, err := s.CountMessages("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInsertMessageConcurrentDuplicates(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertAccount(testAccount("a@x.com")))

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.InsertMessage(testMessage("race-1@mail.example", "a@x.com"))
		}(i)
	}
	wg.Wait()

	inserted := 0
	for _, err := range errs {
		if err == nil {
			inserted++
		} else {
			assert.ErrorIs(t, err, ErrDuplicate)
		}
	}
	assert.Equal(t, 1, inserted)

	count, err := s.CountMessages("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetMessageRoundtrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertAccount(testAccount("a@x.com")))

	msg := testMessage("msg-2@mail.example", "a@x.com")
	msg.Label = "interested"
	require.NoError(t, s.InsertMessage(msg))

	got, err := s.GetMessage(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.MessageID, got.MessageID)
	assert.Equal(t, msg.Subject, got.Subject)
	assert.Equal(t, "interested", got.Label)
	assert.True(t, msg.Date.Equal(got.Date))

	byID, err := s.GetMessageByMessageID("msg-2@mail.example")
	require.NoError(t, err)
	assert.Equal(t, msg.ID, byID.ID)

	_, err = s.GetMessage(999999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateLabelAndFlags(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertAccount(testAccount("a@x.com")))

	msg := testMessage("msg-3@mail.example", "a@x.com")
	require.NoError(t, s.InsertMessage(msg))

	require.NoError(t, s.UpdateLabel("msg-3@mail.example", "important"))
	require.NoError(t, s.UpdateFlags("msg-3@mail.example", true, true, false))

	got, err := s.GetMessageByMessageID("msg-3@mail.example")
	require.NoError(t, err)
	assert.Equal(t, "important", got.Label)
	assert.True(t, got.Read)
	assert.True(t, got.Starred)
	assert.False(t, got.Archived)
}

func TestSearchFullTextAndFilters(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertAccount(testAccount("a@x.com")))
	require.NoError(t, s.UpsertAccount(testAccount("b@x.com")))

	for i, tc := range []struct {
		account string
		subject string
		body    string
		label   string
	}{
		{"a@x.com", "Job opportunity at Acme", "We were impressed by your profile", "interested"},
		{"a@x.com", "Weekly newsletter", "Catch up on this week's releases", ""},
		{"b@x.com", "Invoice attached", "Payment due at the end of the month", ""},
	} {
		msg := testMessage(fmt.Sprintf("search-%d@mail.example", i), tc.account)
		msg.Subject = tc.subject
		msg.Body = tc.body
		msg.Label = tc.label
		msg.Date = msg.Date.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.InsertMessage(msg))
		require.NoError(t, s.IndexMessage(msg))
	}

	results, err := s.Search(SearchOptions{Query: "opportunity"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Job opportunity at Acme", results[0].Subject)

	results, err = s.Search(SearchOptions{AccountEmail: "a@x.com"})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.Search(SearchOptions{Label: "Interested"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "interested", results[0].Label)

	results, err = s.Search(SearchOptions{Query: "payment", AccountEmail: "a@x.com"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchToleratesOperatorCharacters(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertAccount(testAccount("a@x.com")))

	msg := testMessage("fts-1@mail.example", "a@x.com")
	msg.Subject = `Quarterly "report" (final)`
	require.NoError(t, s.InsertMessage(msg))
	require.NoError(t, s.IndexMessage(msg))

	for _, q := range []string{`"unbalanced`, `(`, `report NEAR`, `col:report`, `repo* AND`} {
		_, err := s.Search(SearchOptions{Query: q})
		assert.NoError(t, err, q)
	}

	results, err := s.Search(SearchOptions{Query: `"report"`})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fts-1@mail.example", results[0].MessageID)
}

func TestIndexMessageRequiresPersistedRow(t *testing.T) {
	s := newTestStore(t)
	msg := testMessage("unstored@mail.example", "a@x.com")
	assert.Error(t, s.IndexMessage(msg))
}

func TestDraftLifecycle(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertAccount(testAccount("a@x.com")))

	d := &types.Draft{
		ID:                "draft-1",
		OriginalMessageID: "msg-1@mail.example",
		OriginalSubject:   "Job opportunity",
		OriginalFrom:      "recruiter@acme.com",
		Subject:           "Re: Job opportunity",
		Body:              "Thank you for reaching out.",
		AIModel:           "gemini-1.5-flash",
		Status:            types.DraftStatusDraft,
		Category:          "interested",
		AccountEmail:      "a@x.com",
	}
	require.NoError(t, s.InsertDraft(d))

	drafts, err := s.ListDrafts("", 10)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Re: Job opportunity", drafts[0].Subject)
	assert.False(t, drafts[0].GeneratedAt.IsZero())

	require.NoError(t, s.UpdateDraftStatus("draft-1", types.DraftStatusDiscarded))

	drafts, err = s.ListDrafts(types.DraftStatusDraft, 10)
	require.NoError(t, err)
	assert.Empty(t, drafts)

	assert.ErrorIs(t, s.UpdateDraftStatus("missing", types.DraftStatusSent), ErrNotFound)
}
