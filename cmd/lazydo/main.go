// lazydo drives the LazyDo session from the command line: sign in, pick a role, see which
// screens and task actions that role gets, and call the task API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LAZYDOINDIA/LazyUI/internal/config"
	"github.com/LAZYDOINDIA/LazyUI/internal/health"
	"github.com/LAZYDOINDIA/LazyUI/internal/navigation"
	policydomain "github.com/LAZYDOINDIA/LazyUI/internal/policy/domain"
	"github.com/LAZYDOINDIA/LazyUI/internal/security"
	"github.com/LAZYDOINDIA/LazyUI/internal/session/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lazydo",
		Short:         "LazyDo session and task client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		statusCmd(),
		loginCmd(),
		registerCmd(),
		logoutCmd(),
		switchRoleCmd(),
		addRoleCmd(),
		routeCmd(),
		canCmd(),
		sessionCmd(),
		historyCmd(),
		healthCmd(),
		tasksCmd(),
		profileCmd(),
	)
	return cmd
}

// withApp loads config, builds the app, restores the persisted session and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	a.store.Restore(ctx)
	return fn(ctx, a)
}

func parseRoleArg(arg string) (domain.Role, error) {
	return domain.ParseRole(strings.ToUpper(strings.TrimSpace(arg)))
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				snap := a.store.Snapshot()
				fmt.Fprintf(out, "state: %s\n", snap.State)
				if !snap.IsAuthenticated() {
					return nil
				}
				fmt.Fprintf(out, "user: %s <%s> (%s)\n", snap.Identity.Name, snap.Identity.Email, snap.Identity.ID)
				fmt.Fprintf(out, "roles: %s\n", joinRoles(snap.Roles))
				fmt.Fprintf(out, "active role: %s\n", snap.ActiveRole)
				fmt.Fprintf(out, "can act as giver: %t\n", a.store.CanActAsGiver())
				fmt.Fprintf(out, "can act as taker: %t\n", a.store.CanActAsTaker())
				return nil
			})
		},
	}
}

func joinRoles(roles []domain.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in; the account may act as giver and taker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res := a.store.Login(ctx, email, password)
				if !res.Success {
					return errors.New(res.Error)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s, active role %s\n", res.Identity.Email, a.store.ActiveRole())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func registerCmd() *cobra.Command {
	var name, email, password, role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account with a single role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res := a.store.Register(ctx, domain.Profile{
					Name:  name,
					Email: email,
					Role:  domain.Role(strings.ToUpper(role)),
				})
				if !res.Success {
					return errors.New(res.Error)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered %s as %s\n", res.Identity.Email, res.Identity.PrimaryRole)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleTaker), "GIVER or TAKER")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				a.store.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func switchRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch-role ROLE",
		Short: "Make a permitted role active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := parseRoleArg(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if !a.store.IsAuthenticated() {
					return errors.New("not signed in")
				}
				if err := a.store.SwitchRole(ctx, role); err != nil {
					return err
				}
				if a.store.ActiveRole() != role {
					return fmt.Errorf("role %s is not permitted; add it first", role)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "active role: %s\n", role)
				return nil
			})
		},
	}
}

func addRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-role ROLE",
		Short: "Permit another role for the signed-in account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := parseRoleArg(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if !a.store.IsAuthenticated() {
					return errors.New("not signed in")
				}
				if err := a.store.AddRole(ctx, role); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "roles: %s\n", joinRoles(a.store.Roles()))
				return nil
			})
		},
	}
}

func routeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route",
		Short: "Show the screen stack for the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				stack := navigation.Choose(navigation.ViewOf(a.store.Snapshot()))
				fmt.Fprintln(out, stack.Name)
				for i, s := range stack.Screens {
					fmt.Fprintf(out, "  %s\t%s\t%s\n", s.Name, s.Title, s.IconFor(i == 0))
				}
				return nil
			})
		},
	}
}

func canCmd() *cobra.Command {
	var roleFlag string
	cmd := &cobra.Command{
		Use:   "can [ACTION]",
		Short: "Check what the active role may do",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				role := a.store.ActiveRole()
				if roleFlag != "" {
					r, err := parseRoleArg(roleFlag)
					if err != nil {
						return err
					}
					role = r
				}
				if role == "" {
					return errors.New("not signed in; pass --role")
				}
				if len(args) == 0 {
					actions, err := a.policy.AllowedActions(ctx, role)
					if err != nil {
						return err
					}
					for _, act := range actions {
						fmt.Fprintln(out, act)
					}
					return nil
				}
				ok, err := a.policy.Allowed(ctx, role, policydomain.Action(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s: %t\n", role, args[0], ok)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&roleFlag, "role", "", "Role to check instead of the active one")
	return cmd
}

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect the session credential",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Validate the stored token's signature and claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				token := a.store.Token()
				if token == "" {
					return errors.New("not signed in")
				}
				if a.tokens == nil {
					if token == security.MockToken {
						fmt.Fprintln(cmd.OutOrStdout(), "mock token (unsigned)")
						return nil
					}
					return errors.New("JWT_PRIVATE_KEY is not configured; cannot verify")
				}
				claims, err := a.tokens.Validate(token)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "valid: sub=%s email=%s roles=%s expires=%s\n",
					claims.Subject, claims.Email, strings.Join(claims.Roles, ","), claims.ExpiresAt.Time.Format("2006-01-02T15:04:05Z07:00"))
				return nil
			})
		},
	})
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int32
	var all bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded session events (postgres backend)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.audit == nil {
					return errors.New("session history needs STORAGE_BACKEND=postgres")
				}
				userID := ""
				if id := a.store.Identity(); id != nil && !all {
					userID = id.ID
				}
				entries, err := a.audit.Recent(ctx, userID, limit)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Role, e.UserID)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int32Var(&limit, "limit", 20, "Maximum entries")
	cmd.Flags().BoolVar(&all, "all", false, "Include every user")
	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check storage and policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				report := health.NewChecker(a.pinger, a.policy).Check(ctx)
				fmt.Fprint(cmd.OutOrStdout(), report.String())
				if report.Status != health.StatusServing {
					return errors.New("unhealthy")
				}
				return nil
			})
		},
	}
}
