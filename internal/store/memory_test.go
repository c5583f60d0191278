package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimsift/internal/model"
)

func claimSet(sig string, claimIDs ...string) *model.ClaimSet {
	set := &model.ClaimSet{
		ID:             "3f1c1d1e-0000-4000-8000-000000000001",
		ConditionLabel: "Malignant Hyperthermia",
		MeshSignature:  sig,
		MeshTerms:      []string{"malignant hyperthermia"},
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	for _, id := range claimIDs {
		set.Claims = append(set.Claims, model.AggregatedClaim{
			ClaimID:        id,
			Classification: model.ClassificationRisk,
			Summary:        "summary " + id,
			Confidence:     model.ConfidenceHigh,
			Drugs:          []string{"Succinylcholine"},
			Evidence:       []model.ClaimEvidence{{SnippetID: "111-s1", PMID: "111", KeyPoints: []string{"k"}}},
		})
	}
	return set
}

func TestMemoryStore_ReplaceAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.ReplaceClaimSet(ctx, claimSet("mh", "c1", "c2")))
	require.NoError(t, s.ReplaceClaimSet(ctx, claimSet("mh", "c3")))

	got, err := s.GetClaimSet(ctx, "mh")
	require.NoError(t, err)
	require.Len(t, got.Claims, 1)
	assert.Equal(t, "c3", got.Claims[0].ClaimID)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	set := claimSet("mh", "c1")
	require.NoError(t, s.ReplaceClaimSet(ctx, set))

	set.Claims[0].Drugs[0] = "mutated"
	got, err := s.GetClaimSet(ctx, "mh")
	require.NoError(t, err)
	assert.Equal(t, "Succinylcholine", got.Claims[0].Drugs[0])

	got.Claims[0].Evidence[0].KeyPoints[0] = "mutated"
	again, _ := s.GetClaimSet(ctx, "mh")
	assert.Equal(t, "k", again.Claims[0].Evidence[0].KeyPoints[0])
}

func TestMemoryStore_NotFound(t *testing.T) {
	_, err := NewMemoryStore().GetClaimSet(context.Background(), "none")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_Invalid(t *testing.T) {
	s := NewMemoryStore()
	assert.ErrorIs(t, s.ReplaceClaimSet(context.Background(), nil), ErrInvalidClaimSet)
	assert.ErrorIs(t, s.ReplaceClaimSet(context.Background(), &model.ClaimSet{ID: "x"}), ErrInvalidClaimSet)
}

func TestMemoryStore_CanceledContextPersistsNothing(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.ReplaceClaimSet(ctx, claimSet("mh", "c1")))
	assert.Equal(t, 0, s.Len())
}
