package merge

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/internal/session"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

// Status reports what a merge attempt actually did.
type Status string

const (
	StatusMerged            Status = "merged"
	StatusAlreadyMerged     Status = "already_merged"
	StatusSkippedInProgress Status = "skipped_in_progress"
	StatusNothingToMerge    Status = "nothing_to_merge"
)

var validStatuses = []Status{
	StatusMerged,
	StatusAlreadyMerged,
	StatusSkippedInProgress,
	StatusNothingToMerge,
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Status.
func (s Status) IsValid() bool {
	for _, candidate := range validStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Result is the outcome of one merge attempt. Every non-error outcome is a
// success; Status tells callers which of the no-op paths was taken.
type Result struct {
	Status      Status
	ItemsMerged int
}

type localCart interface {
	ItemsForMerge(ctx context.Context) ([]types.MergeItem, error)
	Clear(ctx context.Context) error
}

type serverCart interface {
	Merge(ctx context.Context, items []types.MergeItem) (*cart.Cart, error)
}

type sessionReader interface {
	Current(ctx context.Context) (*session.Record, error)
}

// Guard folds the anonymous cart into the signed-in user's server cart at
// most once per session. An atomic flag stops concurrent double submission
// within the process; the persisted marker stops repeats across commands in
// the same session.
type Guard struct {
	local   localCart
	server  serverCart
	session sessionReader
	marker  MarkerStore
	logg    *logger.Logger

	inProgress atomic.Bool
}

// GuardParams bundles the dependencies required to build a merge guard.
type GuardParams struct {
	Local   localCart
	Server  serverCart
	Session sessionReader
	Marker  MarkerStore
	Logger  *logger.Logger
}

// NewGuard constructs a merge guard with the provided dependencies.
func NewGuard(params GuardParams) (*Guard, error) {
	if params.Local == nil {
		return nil, errors.New("local cart required")
	}
	if params.Server == nil {
		return nil, errors.New("server cart required")
	}
	if params.Session == nil {
		return nil, errors.New("session reader required")
	}
	if params.Marker == nil {
		return nil, errors.New("marker store required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Guard{
		local:   params.Local,
		server:  params.Server,
		session: params.Session,
		marker:  params.Marker,
		logg:    params.Logger,
	}, nil
}

// Run executes one merge attempt. Only one caller can hold the in-progress
// flag at a time; losers return StatusSkippedInProgress without touching the
// network. On failure the local cart and marker are left untouched so a
// later attempt can retry.
func (g *Guard) Run(ctx context.Context) (Result, error) {
	if !g.inProgress.CompareAndSwap(false, true) {
		return Result{Status: StatusSkippedInProgress}, nil
	}
	defer g.inProgress.Store(false)

	record, err := g.session.Current(ctx)
	if err != nil {
		return Result{}, err
	}

	merged, err := g.marker.Current(ctx)
	if err != nil {
		return Result{}, err
	}
	if merged == record.SessionID {
		return Result{Status: StatusAlreadyMerged}, nil
	}

	items, err := g.local.ItemsForMerge(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(items) == 0 {
		return Result{Status: StatusNothingToMerge}, nil
	}

	ctx = g.logg.WithFields(ctx, map[string]any{
		"session_id": record.SessionID,
		"items":      len(items),
	})

	if _, err := g.server.Merge(ctx, items); err != nil {
		g.logg.Warn(ctx, "cart merge rejected, keeping local items")
		return Result{}, err
	}

	// The server merge already happened; local bookkeeping trouble must not
	// turn it into a reported failure. Worst case a marker miss re-runs the
	// merge against a now-empty local cart, which is a no-op.
	if err := g.local.Clear(ctx); err != nil {
		g.logg.Warn(ctx, "merged local cart could not be cleared")
	}
	if err := g.marker.Set(ctx, record.SessionID); err != nil {
		g.logg.Warn(ctx, "merge marker could not be written")
	}

	g.logg.Info(ctx, "anonymous cart merged into account cart")
	return Result{Status: StatusMerged, ItemsMerged: len(items)}, nil
}
