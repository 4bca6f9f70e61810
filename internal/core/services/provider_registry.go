package services

import (
	"context"
	"sync"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/core/ports"
)

// ProviderRegistry holds the active model proposer and forwards Propose to
// it. Settings changes swap the proposer without touching the orchestrator.
type ProviderRegistry struct {
	mu       sync.RWMutex
	config   domain.LLMConfig
	proposer ports.Proposer
}

// Ensure ProviderRegistry can stand in for a Proposer
var _ ports.Proposer = (*ProviderRegistry)(nil)

func NewProviderRegistry(config domain.LLMConfig, proposer ports.Proposer) *ProviderRegistry {
	return &ProviderRegistry{config: config, proposer: proposer}
}

// Propose calls the proposer active when the call starts. An exchange in
// flight keeps its proposer for the current step only.
func (r *ProviderRegistry) Propose(ctx context.Context, messages []domain.Message, tools []*domain.Tool) (domain.Decision, error) {
	r.mu.RLock()
	p := r.proposer
	r.mu.RUnlock()
	return p.Propose(ctx, messages, tools)
}

// UpdateProvider installs a new proposer built from config
func (r *ProviderRegistry) UpdateProvider(config domain.LLMConfig, proposer ports.Proposer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = config
	r.proposer = proposer
}

// GetConfig returns the configuration of the active proposer (key included)
func (r *ProviderRegistry) GetConfig() domain.LLMConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}
