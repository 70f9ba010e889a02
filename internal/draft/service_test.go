package draft

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulpatani/smartinbox/pkg/types"
)

type fakeReplier struct {
	draft       *types.Draft
	err         error
	plainCalls  int
	ctxCalls    int
	lastContext string
}

func (f *fakeReplier) DraftReply(_ context.Context, msg *types.Message) (*types.Draft, error) {
	f.plainCalls++
	return f.result(msg)
}

func (f *fakeReplier) ContextualReply(_ context.Context, msg *types.Message, userContext string) (*types.Draft, error) {
	f.ctxCalls++
	f.lastContext = userContext
	return f.result(msg)
}

func (f *fakeReplier) result(msg *types.Message) (*types.Draft, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.draft == nil {
		return nil, nil
	}
	d := *f.draft
	d.OriginalMessageID = msg.MessageID
	return &d, nil
}

type fakeDraftStore struct {
	inserted []*types.Draft
	err      error
}

func (f *fakeDraftStore) InsertDraft(d *types.Draft) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, d)
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sampleMessage() *types.Message {
	return &types.Message{MessageID: "msg-1@mail.example", Subject: "Job offer", Label: "interested"}
}

func TestGenerateForMessagePersistsDraft(t *testing.T) {
	replier := &fakeReplier{draft: &types.Draft{Subject: "Re: Job offer", Body: "Thanks!", Status: types.DraftStatusDraft}}
	store := &fakeDraftStore{}
	svc := NewService(replier, store, testLogger())

	d, err := svc.GenerateForMessage(context.Background(), sampleMessage(), "")
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "msg-1@mail.example", d.OriginalMessageID)
	assert.Equal(t, 1, replier.plainCalls)
	assert.Zero(t, replier.ctxCalls)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, d.ID, store.inserted[0].ID)
}

func TestGenerateForMessageUsesContextualReply(t *testing.T) {
	replier := &fakeReplier{draft: &types.Draft{Subject: "Re: Job offer"}}
	store := &fakeDraftStore{}
	svc := NewService(replier, store, testLogger())

	_, err := svc.GenerateForMessage(context.Background(), sampleMessage(), "keep it short")
	require.NoError(t, err)

	assert.Equal(t, 1, replier.ctxCalls)
	assert.Zero(t, replier.plainCalls)
	assert.Equal(t, "keep it short", replier.lastContext)
}

func TestGenerateForMessageDisabledIsNotAnError(t *testing.T) {
	svc := NewService(&fakeReplier{}, &fakeDraftStore{}, testLogger())

	d, err := svc.GenerateForMessage(context.Background(), sampleMessage(), "")
	assert.NoError(t, err)
	assert.Nil(t, d)
}

func TestGenerateForMessageReplierFailure(t *testing.T) {
	replier := &fakeReplier{err: errors.New("model overloaded")}
	store := &fakeDraftStore{}
	svc := NewService(replier, store, testLogger())

	_, err := svc.GenerateForMessage(context.Background(), sampleMessage(), "")
	assert.Error(t, err)
	assert.Empty(t, store.inserted)
}

func TestGenerateForMessageStoreFailure(t *testing.T) {
	replier := &fakeReplier{draft: &types.Draft{Subject: "Re: Job offer"}}
	store := &fakeDraftStore{err: errors.New("disk full")}
	svc := NewService(replier, store, testLogger())

	_, err := svc.GenerateForMessage(context.Background(), sampleMessage(), "")
	assert.Error(t, err)
}
