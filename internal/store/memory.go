package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ppiankov/claimsift/internal/model"
)

// MemoryStore keeps claim sets in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string]*model.ClaimSet
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]*model.ClaimSet)}
}

// ReplaceClaimSet stores a copy of set under its mesh signature.
func (s *MemoryStore) ReplaceClaimSet(ctx context.Context, set *model.ClaimSet) error {
	if err := Validate(set); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("replace claim set %s: %w", set.MeshSignature, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[set.MeshSignature] = clone(set)
	return nil
}

// GetClaimSet returns a copy of the set stored under signature.
func (s *MemoryStore) GetClaimSet(ctx context.Context, signature string) (*model.ClaimSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[signature]
	if !ok {
		return nil, fmt.Errorf("claim set %s: %w", signature, ErrNotFound)
	}
	return clone(set), nil
}

// Len reports the number of stored sets.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets)
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

func clone(set *model.ClaimSet) *model.ClaimSet {
	out := *set
	out.MeshTerms = slices.Clone(set.MeshTerms)
	out.Claims = make([]model.AggregatedClaim, len(set.Claims))
	for i, c := range set.Claims {
		c.Drugs = slices.Clone(c.Drugs)
		c.DrugClasses = slices.Clone(c.DrugClasses)
		c.SourceClaimIDs = slices.Clone(c.SourceClaimIDs)
		c.Articles = slices.Clone(c.Articles)
		c.SevereReactionTerms = slices.Clone(c.SevereReactionTerms)
		c.Evidence = make([]model.ClaimEvidence, len(c.Evidence))
		for j, e := range set.Claims[i].Evidence {
			e.KeyPoints = slices.Clone(e.KeyPoints)
			c.Evidence[j] = e
		}
		out.Claims[i] = c
	}
	return &out
}
