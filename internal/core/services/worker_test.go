package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAsker answers with the prompt text and tracks concurrency
type fakeAsker struct {
	delay    time.Duration
	failOn   string
	running  int32
	peak     int32
	mu       sync.Mutex
	received []string
}

func (a *fakeAsker) Ask(ctx context.Context, p domain.Prompt, events chan<- domain.StepEvent) (*domain.MultiStepAnswer, error) {
	cur := atomic.AddInt32(&a.running, 1)
	defer atomic.AddInt32(&a.running, -1)
	for {
		peak := atomic.LoadInt32(&a.peak)
		if cur <= peak || atomic.CompareAndSwapInt32(&a.peak, peak, cur) {
			break
		}
	}

	a.mu.Lock()
	a.received = append(a.received, p.Text)
	a.mu.Unlock()

	events <- domain.StepEvent{RunID: string(p.ID), Step: 1, Kind: domain.StepProposed}
	time.Sleep(a.delay)

	if p.Text == a.failOn {
		return nil, &domain.ToolNotFoundError{Name: "ghost"}
	}
	events <- domain.StepEvent{RunID: string(p.ID), Step: 1, Kind: domain.StepAnswered, Answer: "re: " + p.Text}
	return &domain.MultiStepAnswer{Text: "re: " + p.Text, Steps: 1}, nil
}

func receive(t *testing.T, b *Bridge) domain.Response {
	t.Helper()
	select {
	case r, ok := <-b.Responses():
		require.True(t, ok, "response channel closed")
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
		return domain.Response{}
	}
}

func TestBridge_FIFOOneAtATime(t *testing.T) {
	asker := &fakeAsker{delay: 20 * time.Millisecond}
	b := NewBridge(testLogger(), asker, BridgeConfig{StepBuffer: 64})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)

	prompts := []domain.Prompt{domain.NewPrompt("one"), domain.NewPrompt("two"), domain.NewPrompt("three")}
	for _, p := range prompts {
		require.NoError(t, b.Submit(p))
	}

	for _, p := range prompts {
		r := receive(t, b)
		assert.Equal(t, p.ID, r.PromptID)
		assert.Equal(t, "re: "+p.Text, r.Text)
		assert.True(t, r.OK())
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&asker.peak), "exchanges must never overlap")
	assert.Equal(t, []string{"one", "two", "three"}, asker.received)
}

func TestBridge_StepsOfOnePromptAreContiguous(t *testing.T) {
	asker := &fakeAsker{}
	b := NewBridge(testLogger(), asker, BridgeConfig{StepBuffer: 64})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)

	first, second := domain.NewPrompt("a"), domain.NewPrompt("b")
	require.NoError(t, b.Submit(first))
	require.NoError(t, b.Submit(second))
	receive(t, b)
	receive(t, b)

	var runs []string
	for {
		e, ok := b.TryStep()
		if !ok {
			break
		}
		runs = append(runs, e.RunID)
	}
	assert.Equal(t, []string{string(first.ID), string(first.ID), string(second.ID), string(second.ID)}, runs)
}

func TestBridge_FailureIsAResponse(t *testing.T) {
	b := NewBridge(testLogger(), &fakeAsker{failOn: "bad"}, BridgeConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)

	require.NoError(t, b.Submit(domain.NewPrompt("bad")))
	require.NoError(t, b.Submit(domain.NewPrompt("good")))

	r := receive(t, b)
	assert.False(t, r.OK())
	assert.Empty(t, r.Text)
	assert.Equal(t, domain.FailureToolNotFound, r.Failure.Kind)
	assert.Equal(t, domain.PromptStatusFailed, r.Status())

	// the worker keeps going after a failure
	r = receive(t, b)
	assert.True(t, r.OK())
}

func TestBridge_TryReceiveNeverBlocks(t *testing.T) {
	b := NewBridge(testLogger(), &fakeAsker{}, BridgeConfig{})

	_, ok := b.TryReceive()
	assert.False(t, ok)
	_, ok = b.TryStep()
	assert.False(t, ok)
}

func TestBridge_SubmitRules(t *testing.T) {
	b := NewBridge(testLogger(), &fakeAsker{}, BridgeConfig{})

	assert.ErrorIs(t, b.Submit(domain.NewPrompt("   ")), domain.ErrEmptyPrompt)

	// prompts queue up before the worker starts
	require.NoError(t, b.Submit(domain.NewPrompt("early")))
	assert.Equal(t, 1, b.Queued())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	r := receive(t, b)
	assert.Equal(t, "re: early", r.Text)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.ErrorIs(t, b.Submit(domain.NewPrompt("late")), domain.ErrBridgeClosed)
	_, ok := <-b.Responses()
	assert.False(t, ok)
}

func TestBridge_RunTwiceFails(t *testing.T) {
	b := NewBridge(testLogger(), &fakeAsker{}, BridgeConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)

	require.Eventually(t, func() bool { return b.running.Load() }, time.Second, 5*time.Millisecond)
	assert.Error(t, b.Run(ctx))
}
