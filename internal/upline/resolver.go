package upline

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/commission-engine/internal/rates"
	"github.com/angelmondragon/commission-engine/internal/users"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
)

var (
	ErrCycleDetected     = errors.New("referral cycle detected")
	ErrBrokenChain       = errors.New("referrer does not resolve to a user")
	ErrResolutionTimeout = errors.New("upline resolution timed out")
)

// Ancestor is one member of an upline. Level 1 is the direct referrer.
type Ancestor struct {
	UserID      int64 `json:"userId"`
	Level       int   `json:"level"`
	IsActivated bool  `json:"isActivated"`
}

// Directory looks up a single user.
type Directory interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// ChainFinder is implemented by directories that can fetch a whole chain in
// one round trip.
type ChainFinder interface {
	FindChain(ctx context.Context, userID int64, maxDepth int) ([]users.ChainRow, error)
}

// Resolver produces the ordered ancestor chain of a user.
type Resolver struct {
	dir      Directory
	maxDepth int
}

// NewResolver builds a resolver that walks at most rates.MaxLevel ancestors.
func NewResolver(dir Directory) (*Resolver, error) {
	if dir == nil {
		return nil, fmt.Errorf("user directory required")
	}
	return &Resolver{dir: dir, maxDepth: rates.MaxLevel}, nil
}

// ResolveChain returns up to nine ancestors of userID, nearest first.
func (r *Resolver) ResolveChain(ctx context.Context, userID int64) ([]Ancestor, error) {
	if finder, ok := r.dir.(ChainFinder); ok {
		return r.resolveBatch(ctx, finder, userID)
	}
	return r.resolveStepwise(ctx, userID)
}

func (r *Resolver) resolveStepwise(ctx context.Context, userID int64) ([]Ancestor, error) {
	current, err := r.lookup(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := map[int64]struct{}{userID: {}}
	chain := make([]Ancestor, 0, r.maxDepth)
	for level := 1; level <= r.maxDepth && current.ReferrerID != nil; level++ {
		next := *current.ReferrerID
		if _, dup := seen[next]; dup {
			return nil, fmt.Errorf("%w: user %d revisited at level %d", ErrCycleDetected, next, level)
		}
		seen[next] = struct{}{}

		current, err = r.lookup(ctx, next)
		if err != nil {
			return nil, err
		}
		chain = append(chain, Ancestor{UserID: current.ID, Level: level, IsActivated: current.IsActivated})
	}
	return chain, nil
}

func (r *Resolver) resolveBatch(ctx context.Context, finder ChainFinder, userID int64) ([]Ancestor, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionTimeout, err)
	}
	rows, err := finder.FindChain(ctx, userID, r.maxDepth)
	if err != nil {
		return nil, classify(ctx, userID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: user %d", ErrBrokenChain, userID)
	}

	seen := map[int64]struct{}{userID: {}}
	chain := make([]Ancestor, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if _, dup := seen[row.ID]; dup {
			return nil, fmt.Errorf("%w: user %d revisited at level %d", ErrCycleDetected, row.ID, i)
		}
		seen[row.ID] = struct{}{}
		chain = append(chain, Ancestor{UserID: row.ID, Level: i, IsActivated: row.IsActivated})
	}

	// the query stops early when a referrer row is missing
	last := rows[len(rows)-1]
	if len(chain) < r.maxDepth && last.ReferrerID != nil {
		return nil, fmt.Errorf("%w: user %d references %d", ErrBrokenChain, last.ID, *last.ReferrerID)
	}
	return chain, nil
}

func (r *Resolver) lookup(ctx context.Context, id int64) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionTimeout, err)
	}
	user, err := r.dir.FindByID(ctx, id)
	if err != nil {
		return nil, classify(ctx, id, err)
	}
	return user, nil
}

func classify(ctx context.Context, id int64, err error) error {
	switch {
	case errors.Is(err, users.ErrNotFound):
		return fmt.Errorf("%w: user %d", ErrBrokenChain, id)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), ctx.Err() != nil:
		return fmt.Errorf("%w: %v", ErrResolutionTimeout, err)
	default:
		return fmt.Errorf("lookup user %d: %w", id, err)
	}
}
