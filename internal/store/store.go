// Package store persists finalized claim sets keyed by mesh signature.
package store

import (
	"context"
	"errors"

	"github.com/ppiankov/claimsift/internal/model"
)

var (
	// ErrNotFound is returned when no claim set exists for a signature.
	ErrNotFound = errors.New("claim set not found")

	// ErrInvalidClaimSet is returned for a claim set that cannot be stored.
	ErrInvalidClaimSet = errors.New("invalid claim set")
)

// Store persists claim sets. ReplaceClaimSet swaps out every claim stored
// under the set's mesh signature atomically: readers see the old set or
// the new one, never a mix.
type Store interface {
	ReplaceClaimSet(ctx context.Context, set *model.ClaimSet) error
	GetClaimSet(ctx context.Context, signature string) (*model.ClaimSet, error)
	Close()
}

// Validate checks the fields every backend requires.
func Validate(set *model.ClaimSet) error {
	switch {
	case set == nil:
		return ErrInvalidClaimSet
	case set.ID == "":
		return errors.Join(ErrInvalidClaimSet, errors.New("id is required"))
	case set.MeshSignature == "":
		return errors.Join(ErrInvalidClaimSet, errors.New("mesh signature is required"))
	}
	return nil
}
