package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/league-registration/internal/config"
	"github.com/iliyamo/league-registration/internal/database"
	"github.com/iliyamo/league-registration/internal/model"
	"github.com/iliyamo/league-registration/internal/service"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back MySQL schema migrations",
	}
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := a.mysqlDSN()
			if err != nil {
				return err
			}
			if err := database.MigrateUp(dsn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last --steps migrations (default 1; 0 rolls back all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := a.mysqlDSN()
			if err != nil {
				return err
			}
			if err := database.MigrateDown(dsn, steps); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rolled back")
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back; 0 rolls back all")
	cmd.AddCommand(up, down)
	return cmd
}

// mysqlDSN fails for SQLite, whose schema is applied on open.
func (a *app) mysqlDSN() (string, error) {
	cfg := a.config()
	if cfg.DBDriver != config.DriverMySQL {
		return "", errors.New("migrations apply to mysql only; sqlite applies its schema when opened")
	}
	return database.MySQLDSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName), nil
}

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default venues, slots and settings in an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context(), func(ctx context.Context, r repos) error {
				res, err := service.NewSetupService(r.db, r.venues, r.slots, r.settings).Setup(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d venues, %d slots, %d settings\n", res.Venues, res.Slots, res.Settings)
				return nil
			})
		},
	}
}

func (a *app) adminCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "admin", Short: "Manage admin accounts"}
	var email, password string
	var reset bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account, or reset its password with --reset",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			cost := a.config().BcryptCost
			return a.open(cmd.Context(), func(ctx context.Context, r repos) error {
				if reset {
					if err := r.admins.SetPassword(ctx, email, password, cost); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "password reset for %s\n", email)
					return nil
				}
				id, err := r.admins.Create(ctx, email, password, model.RoleAdmin, cost)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %d created for %s\n", id, email)
				return nil
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "admin email")
	create.Flags().StringVar(&password, "password", "", "admin password")
	create.Flags().BoolVar(&reset, "reset", false, "reset the password of an existing admin")
	cmd.AddCommand(create)
	return cmd
}

func (a *app) windowCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "window", Short: "Show or change the registration window"}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print whether registration is open and the deadline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context(), func(ctx context.Context, r repos) error {
				return printWindow(ctx, cmd.OutOrStdout(), a.window(r))
			})
		},
	}
	var open bool
	var deadline string
	set := &cobra.Command{
		Use:   "set",
		Short: "Set the open flag and deadline (RFC 3339, empty clears it)",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := model.RegistrationWindow{Open: open}
			if d := strings.TrimSpace(deadline); d != "" {
				t, err := time.Parse(time.RFC3339, d)
				if err != nil {
					return fmt.Errorf("deadline must be RFC 3339: %w", err)
				}
				t = t.UTC()
				w.Deadline = &t
			}
			return a.open(cmd.Context(), func(ctx context.Context, r repos) error {
				ws := a.window(r)
				if err := ws.Set(ctx, w); err != nil {
					return err
				}
				return printWindow(ctx, cmd.OutOrStdout(), ws)
			})
		},
	}
	set.Flags().BoolVar(&open, "open", true, "accept submissions")
	set.Flags().StringVar(&deadline, "deadline", "", "RFC 3339 deadline; empty means none")
	cmd.AddCommand(show, set)
	return cmd
}

func (a *app) window(r repos) *service.WindowService {
	return service.NewWindowService(r.settings, a.v.GetDuration("registration_cache_ttl"))
}

func printWindow(ctx context.Context, out io.Writer, ws *service.WindowService) error {
	st, err := ws.Status(ctx)
	if err != nil {
		return err
	}
	deadline := "none"
	if st.Deadline != nil {
		deadline = st.DeadlineFormatted
	}
	fmt.Fprintf(out, "open: %t\ndeadline: %s\n", st.IsOpen, deadline)
	return nil
}

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "export", Short: "Export the registration ledger"}
	var outPath string
	csvCmd := &cobra.Command{
		Use:   "csv",
		Short: "Write the team-per-row CSV to --out or stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context(), func(ctx context.Context, r repos) error {
				rows, err := r.regs.ListDetailed(ctx)
				if err != nil {
					return err
				}
				if outPath == "" {
					return service.WriteRegistrationsCSV(cmd.OutOrStdout(), rows)
				}
				f, err := os.Create(outPath) //nolint:gosec // G304: operator-supplied path
				if err != nil {
					return err
				}
				if err := service.WriteRegistrationsCSV(f, rows); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", outPath)
				return nil
			})
		},
	}
	csvCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file; stdout when empty")
	cmd.AddCommand(csvCmd)
	return cmd
}

func (a *app) registrationsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "registrations", Short: "Inspect or correct the ledger"}
	var team string
	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove every row of a team so it may submit again",
		RunE: func(cmd *cobra.Command, args []string) error {
			team = strings.TrimSpace(team)
			if team == "" {
				return errors.New("--team is required")
			}
			return a.open(cmd.Context(), func(ctx context.Context, r repos) error {
				n, err := r.regs.DeleteByTeam(ctx, team)
				if err != nil {
					return err
				}
				if n == 0 {
					return fmt.Errorf("no registrations for team %s", team)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d rows for team %s\n", n, team)
				return nil
			})
		},
	}
	del.Flags().StringVar(&team, "team", "", "team number")
	cmd.AddCommand(del)
	return cmd
}
