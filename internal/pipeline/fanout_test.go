package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDispatchRunsEveryTaskDespiteFailures(t *testing.T) {
	var ran []string
	boom := errors.New("boom")

	tasks := []Task{
		{Name: "first", Run: func(context.Context) error { ran = append(ran, "first"); return nil }},
		{Name: "second", Run: func(context.Context) error { ran = append(ran, "second"); return boom }},
		{Name: "third", Run: func(context.Context) error { ran = append(ran, "third"); return nil }},
	}

	outcomes := Dispatch(context.Background(), discardLogger(), tasks)

	assert.Equal(t, []string{"first", "second", "third"}, ran)
	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0].Err)
	assert.ErrorIs(t, outcomes[1].Err, boom)
	assert.NoError(t, outcomes[2].Err)
}

func TestDispatchRecoversPanics(t *testing.T) {
	var ran []string

	tasks := []Task{
		{Name: "panicky", Run: func(context.Context) error { panic("nope") }},
		{Name: "after", Run: func(context.Context) error { ran = append(ran, "after"); return nil }},
	}

	outcomes := Dispatch(context.Background(), discardLogger(), tasks)

	require.Len(t, outcomes, 2)
	assert.ErrorContains(t, outcomes[0].Err, "panicked")
	assert.NoError(t, outcomes[1].Err)
	assert.Equal(t, []string{"after"}, ran)
}

func TestDispatchEmptyTaskList(t *testing.T) {
	assert.Empty(t, Dispatch(context.Background(), discardLogger(), nil))
}
