package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/me/storefront/internal/auth"
	"github.com/me/storefront/pkg/model"
	"github.com/spf13/cobra"
)

// errNotLoggedIn is returned by commands that need a session.
var errNotLoggedIn = errors.New("not logged in")

func newLoginCmd(a *app) *cobra.Command {
	var creds auth.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the storefront API",
		Long: "Log in and store the session. With --remember the session survives new\n" +
			"terminals; otherwise it ends with the terminal that started it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if creds.Username == "" {
				v, err := prompt(in, a.errOut, "Username: ")
				if err != nil {
					return err
				}
				creds.Username = v
			}
			if creds.Password == "" {
				v, err := prompt(in, a.errOut, "Password: ")
				if err != nil {
					return err
				}
				creds.Password = v
			}

			profile, err := a.auth.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s (%s)\n", profile.Username, profile.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "Username (prompted if omitted)")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "Password (prompted if omitted)")
	cmd.Flags().BoolVarP(&creds.Remember, "remember", "r", false, "Keep the session across terminals")
	return cmd
}

func prompt(in *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Long:  "Tell the server to end the session and clear it locally. The local session is cleared even when the server cannot be reached.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.auth.Logout(cmd.Context())
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.auth.IsAuthenticated(cmd.Context()) {
				return errNotLoggedIn
			}
			p := a.auth.Profile(cmd.Context())
			if p == nil {
				fmt.Fprintln(a.out, "(unknown user)")
				return nil
			}
			fmt.Fprintf(a.out, "%s\t%s\t%s\n", p.Username, p.UserID, p.Role)
			return nil
		},
	}
}

// statusView is the JSON form of the status command.
type statusView struct {
	API           string         `json:"api"`
	Authenticated bool           `json:"authenticated"`
	Scope         model.Scope    `json:"scope,omitempty"`
	ExpiresAt     *time.Time     `json:"expiresAt,omitempty"`
	Profile       *model.Profile `json:"profile,omitempty"`
}

func newStatusCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.auth.Session(cmd.Context())
			if err != nil {
				return fmt.Errorf("read session: %w", err)
			}

			view := statusView{API: a.cfg.BaseURL}
			if sess != nil {
				view.Authenticated = true
				view.Scope = sess.Scope
				view.ExpiresAt = &sess.ExpiresAt
				view.Profile = sess.Profile
			}

			if asJSON {
				return printJSON(a.out, view)
			}

			fmt.Fprintf(a.out, "API:        %s\n", view.API)
			if !view.Authenticated {
				fmt.Fprintln(a.out, "Logged in:  no")
				return nil
			}
			fmt.Fprintln(a.out, "Logged in:  yes")
			if p := view.Profile; p != nil {
				fmt.Fprintf(a.out, "User:       %s (%s)\n", p.Username, p.Role)
			}
			fmt.Fprintf(a.out, "Scope:      %s\n", view.Scope)
			fmt.Fprintf(a.out, "Expires:    %s (in %s)\n",
				sess.ExpiresAt.Local().Format("2006-01-02 15:04:05"),
				time.Until(sess.ExpiresAt).Round(time.Second))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
