// Package steps runs sequential, cancellable workflows such as extension
// installs. Progress is published on a pubsub broker so the UI can render
// "2/5: Install ComfyUI-Manager" lines without the runner knowing about
// bubbletea.
package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/easel-dev/easel/internal/log"
	"github.com/easel-dev/easel/internal/pubsub"
	"github.com/easel-dev/easel/internal/tracing"
)

// Step is one unit of work in a run.
type Step interface {
	// Name returns a short human-readable label shown in progress lines.
	Name() string
	// Run performs the work. It must honor ctx cancellation.
	Run(ctx context.Context) error
}

// ProgressEvent describes the state of one step within a run. Two events
// are published per step: one when it starts (Done=false) and one when it
// finishes (Done=true, Err carrying any failure).
type ProgressEvent struct {
	RunID string
	Index int // 1-based position of the step
	Total int
	Name  string
	Done  bool
	Err   error
}

// Runner executes steps in order. A failing step does not stop the run:
// remaining steps still execute and the failures come back joined in one
// error, so a batch install reports every broken extension rather than
// the first. Cancellation stops the run between steps.
type Runner struct {
	events *pubsub.Broker[ProgressEvent]
}

// NewRunner returns a runner with a fresh progress broker.
func NewRunner() *Runner {
	return &Runner{events: pubsub.NewBroker[ProgressEvent]()}
}

// Events returns the broker carrying progress events.
func (r *Runner) Events() *pubsub.Broker[ProgressEvent] {
	return r.events
}

// Run executes all steps sequentially. The returned error is nil when
// every step succeeded, ctx.Err() when the run was cancelled, and
// otherwise an aggregate of all step failures.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	runID := uuid.New().String()
	total := len(steps)

	tracer := otel.Tracer(tracing.ScopeSteps)
	ctx, span := tracer.Start(ctx, tracing.SpanStepRun, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, runID),
		attribute.Int(tracing.AttrStepTotal, total),
	))
	defer span.End()

	log.Info(log.CatSteps, "step run started", "run_id", runID, "total", total)

	var failures []error
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			log.Warn(log.CatSteps, "step run cancelled", "run_id", runID, "completed", i)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		index := i + 1
		r.events.Publish(ProgressEvent{RunID: runID, Index: index, Total: total, Name: step.Name()})

		stepCtx, stepSpan := tracer.Start(ctx, tracing.SpanStep, trace.WithAttributes(
			attribute.String(tracing.AttrRunID, runID),
			attribute.String(tracing.AttrStepName, step.Name()),
			attribute.Int(tracing.AttrStepIndex, index),
		))
		err := step.Run(stepCtx)
		if err != nil {
			stepSpan.RecordError(err)
			stepSpan.SetStatus(codes.Error, err.Error())
			log.Error(log.CatSteps, "step failed", "run_id", runID, "step", step.Name(), "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", step.Name(), err))
		} else {
			log.Debug(log.CatSteps, "step finished", "run_id", runID, "step", step.Name())
		}
		stepSpan.End()

		r.events.Publish(ProgressEvent{RunID: runID, Index: index, Total: total, Name: step.Name(), Done: true, Err: err})
	}

	if len(failures) == 0 {
		log.Info(log.CatSteps, "step run finished", "run_id", runID, "total", total)
		return nil
	}

	err := fmt.Errorf("%d of %d steps failed: %w", len(failures), total, errors.Join(failures...))
	span.SetStatus(codes.Error, err.Error())
	return err
}
