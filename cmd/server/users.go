package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"character-creator/internal/repository/sqlite"
	"character-creator/internal/service"
)

func newUsersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and manage user accounts",
		Long: `Inspect and manage user accounts directly in the database.
Use activate to unlock an account disabled after repeated failed logins.`,
	}
	cmd.AddCommand(newUsersListCmd(opts))
	cmd.AddCommand(newUsersStatusCmd(opts, "activate", "Re-enable an account and clear its failed login counter", true))
	cmd.AddCommand(newUsersStatusCmd(opts, "deactivate", "Disable an account", false))
	return cmd
}

func newUsersListCmd(opts *rootOptions) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts with aggregate stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserService(cmd.Context(), opts, func(users service.UserService) error {
				list, stats, err := users.List(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tACTIVE\tFAILED\tLAST LOGIN")
				for _, u := range list {
					last := "-"
					if u.LastLogin != nil {
						last = u.LastLogin.UTC().Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%d\t%s\n", u.ID, u.Username, u.Email, u.IsActive, u.FailedLoginAttempts, last)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				writeStats(out, stats.TotalUsers, stats.ActiveUsers, stats.InactiveUsers)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of users to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of users to skip")
	return cmd
}

func newUsersStatusCmd(opts *rootOptions, use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserService(cmd.Context(), opts, func(users service.UserService) error {
				var err error
				if active {
					err = users.Activate(cmd.Context(), args[0])
				} else {
					err = users.Deactivate(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %sd\n", args[0], use)
				return nil
			})
		},
	}
}

// withUserService opens the configured database for the duration of fn.
func withUserService(ctx context.Context, opts *rootOptions, fn func(service.UserService) error) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level)

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	repos, err := sqlite.NewRepositories(ctx, db)
	if err != nil {
		return err
	}
	return fn(service.NewUserService(service.UserServiceConfig{
		Users:  repos.Users,
		Logger: logger,
	}))
}

func writeStats(w io.Writer, total, active, inactive int64) {
	fmt.Fprintf(w, "\n%d users (%d active, %d inactive)\n", total, active, inactive)
}
