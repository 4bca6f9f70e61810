package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/manthysbr/toolchat/internal/core/domain"
)

// Asker runs one prompt to a terminal state. ChatService is the production
// implementation.
type Asker interface {
	Ask(ctx context.Context, prompt domain.Prompt, events chan<- domain.StepEvent) (*domain.MultiStepAnswer, error)
}

// BridgeConfig sizes the outbound queues
type BridgeConfig struct {
	ResponseBuffer int
	StepBuffer     int
}

// Bridge is the background worker that keeps model I/O off the foreground.
//
// Prompts go in through Submit (unbounded FIFO, never blocks) and are run one
// at a time by a single goroutine. Each prompt produces exactly one Response.
// Step events of the running prompt are published on a separate channel.
// The foreground only talks to the two queues.
type Bridge struct {
	logger *slog.Logger
	asker  Asker

	mu     sync.Mutex
	queue  []domain.Prompt
	closed bool
	wake   chan struct{}

	responses chan domain.Response
	steps     chan domain.StepEvent
	running   atomic.Bool
}

func NewBridge(logger *slog.Logger, asker Asker, cfg BridgeConfig) *Bridge {
	if cfg.ResponseBuffer <= 0 {
		cfg.ResponseBuffer = 16
	}
	if cfg.StepBuffer <= 0 {
		cfg.StepBuffer = 256
	}
	return &Bridge{
		logger:    logger,
		asker:     asker,
		wake:      make(chan struct{}, 1),
		responses: make(chan domain.Response, cfg.ResponseBuffer),
		steps:     make(chan domain.StepEvent, cfg.StepBuffer),
	}
}

// Submit enqueues a prompt. The queue has no capacity limit, so Submit only
// fails for empty prompts or after the worker has stopped.
func (b *Bridge) Submit(p domain.Prompt) error {
	if strings.TrimSpace(p.Text) == "" {
		return domain.ErrEmptyPrompt
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return domain.ErrBridgeClosed
	}
	b.queue = append(b.queue, p)
	queued := len(b.queue)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}

	b.logger.Info("prompt submitted", "prompt_id", p.ID, "queued", queued)
	return nil
}

// Queued returns the number of prompts waiting to be dequeued.
func (b *Bridge) Queued() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Start runs the worker loop on its own goroutine.
func (b *Bridge) Start(ctx context.Context) {
	go func() {
		if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Error("worker bridge stopped", "error", err)
		}
	}()
}

// Run consumes prompts until ctx is done. It blocks, so it fits an errgroup.
// On return both outbound channels are closed and Submit starts failing.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return errors.New("worker bridge already running")
	}
	defer b.shutdown()

	b.logger.Info("starting worker bridge")
	for {
		p, ok := b.next(ctx)
		if !ok {
			b.logger.Info("stopping worker bridge")
			return ctx.Err()
		}

		resp := b.process(ctx, p)
		select {
		case b.responses <- resp:
		case <-ctx.Done():
			b.logger.Warn("response dropped on shutdown", "prompt_id", p.ID)
			return ctx.Err()
		}
	}
}

func (b *Bridge) next(ctx context.Context) (domain.Prompt, bool) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			p := b.queue[0]
			b.queue[0] = domain.Prompt{}
			b.queue = b.queue[1:]
			b.mu.Unlock()
			return p, true
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.Prompt{}, false
		case <-b.wake:
		}
	}
}

func (b *Bridge) process(ctx context.Context, p domain.Prompt) (resp domain.Response) {
	start := time.Now()
	b.logger.Info("prompt dequeued", "prompt_id", p.ID)

	resp.PromptID = p.ID
	defer func() {
		if rec := recover(); rec != nil {
			resp.Text = ""
			resp.Failure = domain.FailureFromError(fmt.Errorf("worker panic: %v", rec))
		}
		resp.CompletedAt = time.Now().UTC()
		b.logger.Info("prompt finished",
			"prompt_id", p.ID,
			"status", resp.Status(),
			"steps", resp.Steps,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	answer, err := b.asker.Ask(ctx, p, b.steps)
	if err != nil {
		resp.Failure = domain.FailureFromError(err)
		return resp
	}
	resp.Text = answer.Text
	resp.Steps = answer.Steps
	resp.Tools = answer.Tools
	return resp
}

func (b *Bridge) shutdown() {
	b.mu.Lock()
	b.closed = true
	pending := len(b.queue)
	b.queue = nil
	b.mu.Unlock()

	if pending > 0 {
		b.logger.Warn("worker bridge stopped with queued prompts", "count", pending)
	}
	close(b.responses)
	close(b.steps)
}

// TryReceive polls the response queue without blocking.
func (b *Bridge) TryReceive() (domain.Response, bool) {
	select {
	case r, ok := <-b.responses:
		return r, ok
	default:
		return domain.Response{}, false
	}
}

// TryStep polls the step event queue without blocking.
func (b *Bridge) TryStep() (domain.StepEvent, bool) {
	select {
	case e, ok := <-b.steps:
		return e, ok
	default:
		return domain.StepEvent{}, false
	}
}

// Responses exposes the response queue for consumers that prefer select.
func (b *Bridge) Responses() <-chan domain.Response { return b.responses }

// Steps exposes the step event queue.
func (b *Bridge) Steps() <-chan domain.StepEvent { return b.steps }
