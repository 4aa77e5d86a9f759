package reconcile

import (
	"context"
	"fmt"

	"github.com/huangang/taskdesk/internal/models"
	"golang.org/x/sync/errgroup"
)

// AssignFunc links a project member to the task being saved.
type AssignFunc func(ctx context.Context, projectMemberID int64) (models.Assignment, error)

// UnassignFunc removes one existing assignment.
type UnassignFunc func(ctx context.Context, a models.Assignment) error

// Outcome is the result of a fully successful ApplyPlan.
type Outcome struct {
	Added   []models.Assignment `json:"added"`
	Removed []models.Assignment `json:"removed"`
	Results []OpResult          `json:"results"`
}

type applyOptions struct {
	concurrency int
}

// ApplyOption tunes ApplyPlan.
type ApplyOption func(*applyOptions)

// WithConcurrency bounds the number of calls in flight. n <= 0 means no bound.
func WithConcurrency(n int) ApplyOption {
	return func(o *applyOptions) {
		o.concurrency = n
	}
}

// ApplyPlan issues one assign call per ToAdd entry and one unassign call per
// ToRemove entry. Calls run concurrently with no ordering between them, and
// ApplyPlan returns only after every dispatched call has settled.
//
// If any call fails the returned error is a *PartialFailure whose Results hold
// every call's outcome in dispatch order (adds, then removes). Its Message is
// the server message of the first failed call that has one, else
// FallbackMessage. If ctx ends first, outstanding calls are abandoned through
// their context and ApplyPlan returns ErrCanceled without results.
func ApplyPlan(ctx context.Context, plan Plan, assign AssignFunc, unassign UnassignFunc, opts ...ApplyOption) (*Outcome, error) {
	o := applyOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	results := make([]OpResult, len(plan.ToAdd)+len(plan.ToRemove))
	added := make([]models.Assignment, len(plan.ToAdd))

	// The group context is not used: one failed call must not cancel the
	// others, so every call sees only the caller's context.
	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}

	for i, memberID := range plan.ToAdd {
		g.Go(func() error {
			res := OpResult{Op: OpAssign, MemberID: memberID}
			if ctx.Err() == nil {
				a, err := assign(ctx, memberID)
				if err == nil {
					res.OK = true
					res.AssignmentID = a.ID
					added[i] = a
				} else {
					res.Err = err
					res.Message = serverMessage(err)
				}
			} else {
				res.Err = ctx.Err()
			}
			results[i] = res
			return nil
		})
	}

	offset := len(plan.ToAdd)
	for i, a := range plan.ToRemove {
		g.Go(func() error {
			res := OpResult{Op: OpUnassign, MemberID: a.ProjectMemberID, AssignmentID: a.ID}
			if ctx.Err() == nil {
				if err := unassign(ctx, a); err == nil {
					res.OK = true
				} else {
					res.Err = err
					res.Message = serverMessage(err)
				}
			} else {
				res.Err = ctx.Err()
			}
			results[offset+i] = res
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	var failed bool
	message := ""
	for _, r := range results {
		if r.OK {
			continue
		}
		failed = true
		if message == "" && r.Message != "" {
			message = r.Message
		}
	}
	if failed {
		if message == "" {
			message = FallbackMessage
		}
		return nil, &PartialFailure{Message: message, Results: results}
	}

	out := &Outcome{
		Added:   added,
		Removed: append([]models.Assignment(nil), plan.ToRemove...),
		Results: results,
	}
	if out.Removed == nil {
		out.Removed = []models.Assignment{}
	}
	return out, nil
}
