package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/huangang/taskdesk/internal/config"
	"github.com/huangang/taskdesk/internal/models"
	"github.com/huangang/taskdesk/internal/reconcile"
	"github.com/huangang/taskdesk/internal/upstream"
	"github.com/spf13/cobra"
)

// partialError is returned when some assignment calls failed; main exits 2.
type partialError struct {
	failure *reconcile.PartialFailure
}

func (e *partialError) Error() string {
	return fmt.Sprintf("%s (%d of %d operations failed)", e.failure.Message, len(e.failure.Failed()), len(e.failure.Results))
}

func (e *partialError) Unwrap() error { return e.failure }

func assignCmd(opts *globalOptions) *cobra.Command {
	var (
		memberIDs   []int64
		dryRun      bool
		none        bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "assign <taskID>",
		Short: "Make a task's assignees exactly the given members",
		Long: `Loads the task's current assignments, computes which members to add and
which assignments to remove, prints that plan and applies it.

Use --none instead of --members to unassign everyone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			if none == cmd.Flags().Changed("members") {
				return errors.New("pass exactly one of --members or --none")
			}
			if none {
				memberIDs = nil
			}
			cred, err := opts.credential()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			api := opts.client()
			current, err := api.FetchAssignments(ctx, cred, taskID)
			if err != nil {
				return fmt.Errorf("loading assignments: %w", err)
			}

			plan := reconcile.ComputePlan(current, memberIDs)
			out := cmd.OutOrStdout()
			printPlan(out, taskID, plan)
			if plan.IsEmpty() || dryRun {
				return nil
			}

			outcome, err := applyAssignments(ctx, api, cred, taskID, plan, concurrency)
			var partial *partialError
			if errors.As(err, &partial) {
				printResults(out, partial.failure.Results)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Done: %d added, %d removed\n", len(outcome.Added), len(outcome.Removed))
			return nil
		},
	}

	cmd.Flags().Int64SliceVarP(&memberIDs, "members", "m", nil, "Project member ids to keep assigned, e.g. 10,20")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without applying it")
	cmd.Flags().IntVar(&concurrency, "concurrency", config.DefaultConfig().Upstream.MaxConcurrentCalls, "Assignment calls in flight at once")
	cmd.Flags().BoolVar(&none, "none", false, "Unassign every member")
	return cmd
}

func applyAssignments(ctx context.Context, api *upstream.Client, cred upstream.Credential, taskID int64, plan reconcile.Plan, concurrency int) (*reconcile.Outcome, error) {
	outcome, err := reconcile.ApplyPlan(ctx, plan,
		func(ctx context.Context, memberID int64) (models.Assignment, error) {
			return api.Assign(ctx, cred, taskID, memberID)
		},
		func(ctx context.Context, a models.Assignment) error {
			return api.Unassign(ctx, cred, a.ID)
		},
		reconcile.WithConcurrency(concurrency),
	)
	var partial *reconcile.PartialFailure
	if errors.As(err, &partial) {
		return nil, &partialError{failure: partial}
	}
	return outcome, err
}

func printPlan(w io.Writer, taskID int64, plan reconcile.Plan) {
	if plan.IsEmpty() {
		fmt.Fprintf(w, "Task %d: assignees already match, nothing to do\n", taskID)
		return
	}
	fmt.Fprintf(w, "Task %d plan:\n", taskID)
	for _, id := range plan.ToAdd {
		fmt.Fprintf(w, "  + assign member %d\n", id)
	}
	for _, a := range plan.ToRemove {
		fmt.Fprintf(w, "  - remove assignment %d (member %d)\n", a.ID, a.ProjectMemberID)
	}
}

func printResults(w io.Writer, results []reconcile.OpResult) {
	for _, r := range results {
		status := "ok"
		if !r.OK {
			status = "FAILED"
			if r.Message != "" {
				status += ": " + r.Message
			}
		}
		switch r.Op {
		case reconcile.OpAssign:
			fmt.Fprintf(w, "  assign member %d: %s\n", r.MemberID, status)
		default:
			fmt.Fprintf(w, "  remove assignment %d: %s\n", r.AssignmentID, status)
		}
	}
}
