package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/chefconnect/internal/session"
)

// AuthOptions holds flags for the auth commands.
type AuthOptions struct {
	*RootOptions
	Email           string
	Password        string
	ConfirmPassword string
	NewPassword     string
	Name            string
	Username        string
	Avatar          string
	Bio             string
	Token           string
}

// AuthStatus is the output of auth status and auth validate.
type AuthStatus struct {
	State string        `json:"state"`
	Valid *bool         `json:"valid,omitempty"`
	User  *session.User `json:"user,omitempty"`
}

// NewAuthCommand creates the auth command group.
func NewAuthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, register and manage the local account",
	}

	login := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, a *app, m *session.Manager) error {
				return emitResult(a, m.Login(ctx, session.Credentials{Email: opts.Email, Password: opts.Password}))
			})
		},
	}
	login.Flags().StringVar(&opts.Email, "email", "", "account email")
	login.Flags().StringVar(&opts.Password, "password", "", "account password")

	register := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, a *app, m *session.Manager) error {
				confirm := opts.ConfirmPassword
				if !cmd.Flags().Changed("confirm-password") {
					confirm = opts.Password
				}
				return emitResult(a, m.Register(ctx, session.Registration{
					Name:            opts.Name,
					Email:           opts.Email,
					Username:        opts.Username,
					Password:        opts.Password,
					ConfirmPassword: confirm,
				}))
			})
		},
	}
	register.Flags().StringVar(&opts.Name, "name", "", "display name")
	register.Flags().StringVar(&opts.Email, "email", "", "account email")
	register.Flags().StringVar(&opts.Username, "username", "", "username (defaults to the email's local part)")
	register.Flags().StringVar(&opts.Password, "password", "", "account password")
	register.Flags().StringVar(&opts.ConfirmPassword, "confirm-password", "", "password confirmation (defaults to --password)")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, a *app, m *session.Manager) error {
				m.Logout(ctx)
				return emitStatus(a, m, nil)
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, a *app, m *session.Manager) error {
				return emitStatus(a, m, nil)
			})
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the session token, signing out when it is no longer valid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, a *app, m *session.Manager) error {
				valid := m.ValidateToken(ctx)
				if err := emitStatus(a, m, &valid); err != nil {
					return err
				}
				if !valid {
					return NewExitError(ExitFailure, "session is not valid")
				}
				return nil
			})
		},
	}

	forgot := &cobra.Command{
		Use:   "forgot",
		Short: "Request a password reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, a *app, m *session.Manager) error {
				return emitResult(a, m.ForgotPassword(ctx, opts.Email))
			})
		},
	}
	forgot.Flags().StringVar(&opts.Email, "email", "", "account email")

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with a reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, a *app, m *session.Manager) error {
				return emitResult(a, m.ResetPassword(ctx, opts.Token, opts.NewPassword))
			})
		},
	}
	reset.Flags().StringVar(&opts.Token, "token", "", "reset token from auth forgot")
	reset.Flags().StringVar(&opts.NewPassword, "new-password", "", "new password")

	profile := &cobra.Command{
		Use:   "profile",
		Short: "Update the signed-in user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, a *app, m *session.Manager) error {
				var p session.ProfileUpdate
				f := cmd.Flags()
				if f.Changed("name") {
					p.Name = &opts.Name
				}
				if f.Changed("username") {
					p.Username = &opts.Username
				}
				if f.Changed("avatar") {
					p.Avatar = &opts.Avatar
				}
				if f.Changed("bio") {
					p.Bio = &opts.Bio
				}
				return emitResult(a, m.UpdateProfile(ctx, p))
			})
		},
	}
	profile.Flags().StringVar(&opts.Name, "name", "", "display name")
	profile.Flags().StringVar(&opts.Username, "username", "", "username")
	profile.Flags().StringVar(&opts.Avatar, "avatar", "", "avatar URL")
	profile.Flags().StringVar(&opts.Bio, "bio", "", "short bio")

	password := &cobra.Command{
		Use:   "password",
		Short: "Change the signed-in user's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, a *app, m *session.Manager) error {
				return emitResult(a, m.ChangePassword(ctx, opts.Password, opts.NewPassword))
			})
		},
	}
	password.Flags().StringVar(&opts.Password, "current", "", "current password")
	password.Flags().StringVar(&opts.NewPassword, "new", "", "new password")

	cmd.AddCommand(login, register, logout, status, validate, forgot, reset, profile, password)
	return cmd
}

func withSession(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app, m *session.Manager) error) error {
	return withApp(cmd, opts, func(ctx context.Context, a *app) error {
		return fn(ctx, a, a.sessions(ctx))
	})
}

// emitResult prints r and turns a failed result into exit code 1.
func emitResult(a *app, r session.Result) error {
	err := a.out.Emit(r, func(w io.Writer) {
		if !r.Success {
			fmt.Fprintf(w, "Failed: %s\n", r.Error)
			fields := make([]string, 0, len(r.FieldErrors))
			for f := range r.FieldErrors {
				fields = append(fields, f)
			}
			slices.Sort(fields)
			for _, f := range fields {
				fmt.Fprintf(w, "  %s: %s\n", f, r.FieldErrors[f])
			}
			return
		}
		switch {
		case r.ResetToken != "":
			fmt.Fprintf(w, "Reset token: %s\n", r.ResetToken)
		case r.User != nil:
			writeUser(w, r.User)
		default:
			fmt.Fprintln(w, "OK")
		}
	})
	if err != nil {
		return err
	}
	if !r.Success {
		return &ExitError{Code: ExitFailure, Message: r.Error, Err: r.Err}
	}
	return nil
}

func emitStatus(a *app, m *session.Manager, valid *bool) error {
	st := AuthStatus{State: m.State().String(), Valid: valid, User: m.User()}
	return a.out.Emit(st, func(w io.Writer) {
		fmt.Fprintf(w, "State: %s\n", st.State)
		if valid != nil {
			fmt.Fprintf(w, "Valid: %t\n", *valid)
		}
		if st.User != nil {
			writeUser(w, st.User)
		}
	})
}

func writeUser(w io.Writer, u *session.User) {
	fmt.Fprintf(w, "%s <%s> @%s (%s)\n", u.Name, u.Email, u.Username, u.ID)
	if u.Bio != "" {
		fmt.Fprintf(w, "  %s\n", u.Bio)
	}
}
