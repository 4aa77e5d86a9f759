package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/huangang/taskdesk/internal/models"
	"github.com/spf13/cobra"
)

func projectsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := opts.credential()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			projects, err := opts.client().ListProjects(ctx, cred)
			if err != nil {
				return err
			}
			printProjects(cmd.OutOrStdout(), projects)
			return nil
		},
	}
}

func tasksCmd(opts *globalOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "tasks <projectID>",
		Short: "List a project's tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			cred, err := opts.credential()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			api := opts.client()
			var tasks []models.Task
			if status != "" {
				s := models.TaskStatus(status)
				if !s.Valid() {
					return fmt.Errorf("status must be TODO, IN_PROGRESS or DONE")
				}
				tasks, err = api.ListTasksByStatus(ctx, cred, projectID, s)
			} else {
				tasks, err = api.ListProjectTasks(ctx, cred, projectID)
			}
			if err != nil {
				return err
			}

			printTasks(cmd.OutOrStdout(), tasks)
			stats := models.ComputeStats(tasks)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d tasks, %d%% done\n", stats.TotalTasks, stats.Progress)
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Only tasks in this status")
	return cmd
}

func membersCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "members <projectID>",
		Short: "List a project's members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			cred, err := opts.credential()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			members, err := opts.client().FetchProjectMembers(ctx, cred, projectID)
			if err != nil {
				return err
			}
			printMembers(cmd.OutOrStdout(), members)
			return nil
		},
	}
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

func printProjects(w io.Writer, projects []models.Project) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTART")
	for _, p := range projects {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", p.ID, p.Name, p.StartDate.Date())
	}
	tw.Flush()
}

func printTasks(w io.Writer, tasks []models.Task) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDUE\tNAME")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Status, t.Priority, t.DueDate, t.Name)
	}
	tw.Flush()
}

func printMembers(w io.Writer, members []models.ProjectMember) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MEMBER\tUSER\tROLE\tNAME")
	for _, m := range members {
		if m.ID == 0 {
			continue
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", m.ID, m.User.ID, m.Role, m.DisplayName())
	}
	tw.Flush()
}
