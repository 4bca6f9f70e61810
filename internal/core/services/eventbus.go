package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/manthysbr/toolchat/internal/core/domain"
)

type EventType string

const (
	EventTypeStep    EventType = "step"
	EventTypeAnswer  EventType = "answer"
	EventTypeFailure EventType = "failure"
)

type Event struct {
	PromptID  domain.PromptID
	Type      EventType
	Data      string // JSON payload
	Step      *domain.StepEvent
	Response  *domain.Response
	Timestamp int64
}

// EventBus fans out prompt events to per-prompt and global subscribers.
type EventBus struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[domain.PromptID][]chan Event
	global []chan Event
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		logger: logger,
		subs:   make(map[domain.PromptID][]chan Event),
	}
}

// Subscribe returns a channel that receives events for a specific prompt
func (b *EventBus) Subscribe(id domain.PromptID) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 100)
	b.subs[id] = append(b.subs[id], ch)

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subscribers := b.subs[id]
			for i, sub := range subscribers {
				if sub == ch {
					close(ch)
					b.subs[id] = append(subscribers[:i], subscribers[i+1:]...)
					break
				}
			}
			if len(b.subs[id]) == 0 {
				delete(b.subs, id)
			}
		})
	}

	return ch, unsub
}

// SubscribeGlobal receives every event regardless of prompt
func (b *EventBus) SubscribeGlobal() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 100)
	b.global = append(b.global, ch)

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, sub := range b.global {
				if sub == ch {
					close(ch)
					b.global = append(b.global[:i], b.global[i+1:]...)
					break
				}
			}
		})
	}
	return ch, unsub
}

// Publish sends an event to all subscribers of the prompt and to global
// subscribers. Full channels drop the event.
func (b *EventBus) Publish(e Event) {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[e.PromptID] {
		b.send(ch, e)
	}
	for _, ch := range b.global {
		b.send(ch, e)
	}
}

func (b *EventBus) send(ch chan Event, e Event) {
	select {
	case ch <- e:
	default:
		b.logger.Warn("event bus channel full, dropping event", "prompt_id", e.PromptID, "type", e.Type)
	}
}

// StepEventOf wraps a step event for the bus
func StepEventOf(s domain.StepEvent) Event {
	data, _ := json.Marshal(s)
	return Event{
		PromptID:  domain.PromptID(s.RunID),
		Type:      EventTypeStep,
		Data:      string(data),
		Step:      &s,
		Timestamp: s.Timestamp.UnixMilli(),
	}
}

// ResponseEventOf wraps a final response for the bus
func ResponseEventOf(r domain.Response) Event {
	data, _ := json.Marshal(r)
	typ := EventTypeAnswer
	if !r.OK() {
		typ = EventTypeFailure
	}
	return Event{
		PromptID:  r.PromptID,
		Type:      typ,
		Data:      string(data),
		Response:  &r,
		Timestamp: r.CompletedAt.UnixMilli(),
	}
}

// Relay forwards bridge output onto the bus until ctx is done or the bridge
// stops. Step events still buffered when a response arrives are published
// first, so subscribers see a prompt's steps before its answer.
func Relay(ctx context.Context, bridge *Bridge, bus *EventBus) error {
	steps := bridge.Steps()
	responses := bridge.Responses()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case s, ok := <-steps:
			if !ok {
				steps = nil
				if responses == nil {
					return nil
				}
				continue
			}
			bus.Publish(StepEventOf(s))

		case r, ok := <-responses:
			if !ok {
				responses = nil
				if steps == nil {
					return nil
				}
				continue
			}
			drainSteps(steps, bus)
			bus.Publish(ResponseEventOf(r))
		}
	}
}

func drainSteps(steps <-chan domain.StepEvent, bus *EventBus) {
	if steps == nil {
		return
	}
	for {
		select {
		case s, ok := <-steps:
			if !ok {
				return
			}
			bus.Publish(StepEventOf(s))
		default:
			return
		}
	}
}
