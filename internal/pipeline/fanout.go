package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rahulpatani/smartinbox/internal/metrics"
)

// Task is one independent side effect to run during fan-out.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Outcome records whether a single dispatcher succeeded.
type Outcome struct {
	Name string
	Err  error
}

// Dispatch runs every task with isolated failure capture: one dispatcher
// failing (or panicking) never prevents the others from running, and no
// error propagates to the caller. The aggregate result lists each task's
// outcome.
func Dispatch(ctx context.Context, logger *logrus.Logger, tasks []Task) []Outcome {
	outcomes := make([]Outcome, 0, len(tasks))
	for _, task := range tasks {
		err := runTask(ctx, task)
		if err != nil {
			metrics.FanoutFailures.WithLabelValues(task.Name).Inc()
			logger.WithError(err).WithField("dispatcher", task.Name).Error("Dispatcher failed")
		}
		outcomes = append(outcomes, Outcome{Name: task.Name, Err: err})
	}
	return outcomes
}

func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher panicked: %v", r)
		}
	}()
	return task.Run(ctx)
}
