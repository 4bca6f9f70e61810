package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/core/ports"
)

// DefaultMaxLoops bounds an exchange when the caller does not.
const DefaultMaxLoops = 10

// Orchestrator drives Proposer and Resolver in a bounded loop until the model
// answers in plain text or the exchange fails.
//
// Tool failures (unknown tool, bad arguments, handler error) end the exchange.
// They are not fed back to the model.
type Orchestrator struct {
	logger   *slog.Logger
	proposer ports.Proposer
	resolver *Resolver
	maxLoops int
}

func NewOrchestrator(logger *slog.Logger, proposer ports.Proposer, resolver *Resolver, maxLoops int) *Orchestrator {
	if maxLoops <= 0 {
		maxLoops = DefaultMaxLoops
	}
	return &Orchestrator{
		logger:   logger,
		proposer: proposer,
		resolver: resolver,
		maxLoops: maxLoops,
	}
}

func (o *Orchestrator) MaxLoops() int { return o.maxLoops }

// Run borrows history for one exchange. A non-empty prompt is appended as a
// user message, then every successful tool call appends one tool message.
// The final answer is not appended; that is up to the caller.
//
// Every transition emits one StepEvent on events. Sends never block: when the
// channel is full the event is dropped and logged. A nil channel disables
// events.
func (o *Orchestrator) Run(ctx context.Context, runID string, history *domain.History, prompt string, events chan<- domain.StepEvent) (*domain.MultiStepAnswer, error) {
	o.logger.Info("starting multi-step loop", "run_id", runID, "max_loops", o.maxLoops)

	if prompt != "" {
		history.AddUser(prompt)
	}

	answer := &domain.MultiStepAnswer{}
	tools := o.resolver.Tools()

	for step := 1; step <= o.maxLoops; step++ {
		o.logger.Debug("proposing", "run_id", runID, "step", step, "history_len", history.Len())

		decision, err := o.proposer.Propose(ctx, history.WithSystem(), tools)
		if err != nil {
			err = domain.AsTransportError(err)
			o.fail(runID, step, err, events)
			return nil, err
		}
		answer.Steps = step

		d := decision
		o.emit(events, domain.StepEvent{RunID: runID, Step: step, Kind: domain.StepProposed, Decision: &d, ToolName: d.ToolName})

		res := o.resolver.Resolve(ctx, decision)
		switch res.Kind {
		case domain.ResolutionModelText:
			answer.Text = res.Text
			o.logger.Info("multi-step loop answered", "run_id", runID, "steps", step)
			o.emit(events, domain.StepEvent{RunID: runID, Step: step, Kind: domain.StepAnswered, Answer: res.Text})
			return answer, nil

		case domain.ResolutionExecuted:
			content, err := EncodeResult(res.Result)
			if err != nil {
				err = &domain.ExecutionError{Name: res.ToolName, Err: err}
				o.fail(runID, step, err, events)
				return nil, err
			}
			history.AddToolResult(res.ToolName, content)
			answer.Tools = append(answer.Tools, res.ToolName)
			o.logger.Info("tool result appended", "run_id", runID, "step", step, "tool", res.ToolName)
			o.emit(events, domain.StepEvent{RunID: runID, Step: step, Kind: domain.StepExecuted, ToolName: res.ToolName, Result: content})

		default:
			err := res.AsError()
			o.fail(runID, step, err, events)
			return nil, err
		}
	}

	err := &domain.LoopExhaustedError{MaxLoops: o.maxLoops}
	o.fail(runID, o.maxLoops, err, events)
	return nil, err
}

func (o *Orchestrator) fail(runID string, step int, err error, events chan<- domain.StepEvent) {
	f := domain.FailureFromError(err)
	o.logger.Error("multi-step loop failed", "run_id", runID, "step", step, "kind", f.Kind, "error", err)
	o.emit(events, domain.StepEvent{RunID: runID, Step: step, Kind: domain.StepFailed, ToolName: f.Tool, Failure: f})
}

func (o *Orchestrator) emit(events chan<- domain.StepEvent, e domain.StepEvent) {
	if events == nil {
		return
	}
	e.Timestamp = time.Now().UTC()
	select {
	case events <- e:
	default:
		o.logger.Warn("step event channel full, dropping event", "run_id", e.RunID, "kind", e.Kind)
	}
}
