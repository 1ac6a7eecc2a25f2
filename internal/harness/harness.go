package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/edb/internal/engine"
	"github.com/roach88/edb/internal/record"
	"github.com/roach88/edb/internal/schema"
	"github.com/roach88/edb/internal/testutil"
)

const (
	defaultStartTime = 1000
	defaultTimeStep  = 10
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and revision sequence.
type Harness struct {
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs on a fresh in-memory engine for isolation.
// An error is returned only when the scenario cannot be executed (bad
// schema, malformed attribute values); unexpected outcomes are recorded
// in the result.
//
// Execution flow:
// 1. Create a fresh engine with a stepped clock and sequential revisions
// 2. Load the schema, if any
// 3. Execute steps, checking each against its expect_error
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with step outcomes logged to logger at debug level.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	start, step := scenario.StartTime, scenario.TimeStep
	if start == 0 {
		start = defaultStartTime
	}
	if step == 0 {
		step = defaultTimeStep
	}

	opts := []engine.Option{
		engine.WithTimeSource(testutil.NewSteppedClock(start, step).Now),
		engine.WithRevisionGenerator(testutil.NewSequentialRevisions()),
	}
	if scenario.Schema != "" {
		set, err := schema.Load(scenario.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to load schema: %w", err)
		}
		opts = append(opts, engine.WithValidator(set))
	}

	eng := engine.New(opts...)
	defer eng.Close()

	h := &Harness{engine: eng, logger: logger}
	ctx := context.Background()

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	for _, errMsg := range EvaluateAssertions(ctx, eng, result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// executeSteps submits every step's commit in order.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	var prev *record.Commit
	for i, step := range steps {
		c := prev
		if !step.Resubmit {
			built, err := step.Commit.Build()
			if err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
			c = built
		}

		ts, err := h.engine.Commit(ctx, c)
		code := string(engine.CodeOf(err))
		h.logger.Debug("step executed", "step", i, "timestamp", ts, "code", code)

		if err != nil {
			result.Trace = append(result.Trace, TraceEvent{Step: i, Type: EventRejected, Code: code})
			if step.ExpectError != code {
				result.AddError(fmt.Sprintf("step %d: unexpected error: %v", i, err))
			}
		} else {
			result.Trace = append(result.Trace, commitEvent(i, c))
			if step.ExpectError != "" {
				result.AddError(fmt.Sprintf("step %d: expected %s, commit succeeded", i, step.ExpectError))
			}
		}
		prev = c
	}
	return nil
}

func commitEvent(step int, c *record.Commit) TraceEvent {
	ev := TraceEvent{
		Step:      step,
		Type:      EventCommit,
		Timestamp: c.Timestamp,
		Revision:  c.Revision,
		Deletions: c.Deletions,
	}
	for _, e := range c.Inserts {
		ev.Inserts = append(ev.Inserts, fmt.Sprintf("%s@%d", e.ID, e.Version))
	}
	for _, e := range c.Updates {
		ev.Updates = append(ev.Updates, fmt.Sprintf("%s@%d", e.ID, e.Version))
	}
	return ev
}
