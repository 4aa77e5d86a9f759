package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangang/taskdesk/internal/config"
	"github.com/huangang/taskdesk/internal/upstream"
	"github.com/spf13/cobra"
)

var Version = "dev"

// globalOptions are the root flags shared by every command.
type globalOptions struct {
	apiURL  string
	token   string
	userID  int64
	timeout time.Duration
}

func main() {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "taskctl",
		Short:         "taskctl - terminal client for the task API",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("TASKDESK_API", "http://localhost:8081/api"), "Task API base URL, including /api")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("TASKDESK_TOKEN"), "Bearer token (or TASKDESK_TOKEN)")
	rootCmd.PersistentFlags().Int64Var(&opts.userID, "user-id", 0, "Your user id, needed when creating tasks")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "Timeout for the whole command")

	rootCmd.AddCommand(loginCmd(opts))
	rootCmd.AddCommand(projectsCmd(opts))
	rootCmd.AddCommand(tasksCmd(opts))
	rootCmd.AddCommand(membersCmd(opts))
	rootCmd.AddCommand(assignCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var partial *partialError
		if errors.As(err, &partial) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (o *globalOptions) client() *upstream.Client {
	cfg := config.DefaultConfig().Upstream
	cfg.BaseURL = strings.TrimRight(o.apiURL, "/")
	cfg.TimeoutSeconds = int(o.timeout / time.Second)
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 1
	}
	return upstream.NewClient(cfg)
}

func (o *globalOptions) credential() (upstream.Credential, error) {
	if o.token == "" {
		return upstream.Credential{}, errors.New("no token: run 'taskctl login' and export TASKDESK_TOKEN, or pass --token")
	}
	return upstream.Credential{Token: o.token, UserID: o.userID}, nil
}

func (o *globalOptions) context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, o.timeout)
}
