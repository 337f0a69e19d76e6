package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"fatura/internal/api"
	"fatura/internal/client"
	"fatura/internal/validation"
)

// readPassword returns --password, or the first line of stdin when
// --password-stdin is set.
func readPassword(cmd *cobra.Command) (string, error) {
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")
	password, _ := cmd.Flags().GetString("password")
	if !fromStdin {
		if password == "" {
			return "", errors.New("--password or --password-stdin is required")
		}
		return password, nil
	}
	if password != "" {
		return "", errors.New("--password and --password-stdin are mutually exclusive")
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func passwordFlags(cmd *cobra.Command) {
	cmd.Flags().String("password", "", "account password")
	cmd.Flags().Bool("password-stdin", false, "read the password from stdin")
}

func (a *app) signUpCmd() *cobra.Command {
	var (
		req         api.SignUpRequest
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create an account. With --interactive every field not given as a flag is
asked for on stdin, one per line, and asked again until it is valid.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			var user api.UserResponse
			if interactive {
				user, err = promptSignUp(cmd, c, req)
			} else {
				var password string
				if password, err = readPassword(cmd); err != nil {
					return err
				}
				req.Password, req.ConfirmPassword = password, password
				user, err = c.SignUp(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			return a.printer(cmd).line("Account %q created for %s. Run 'faturactl signin' to start a session.", user.Username, user.Name)
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "full name")
	cmd.Flags().StringVar(&req.Username, "username", "", "login name")
	cmd.Flags().StringVar(&req.Email, "email", "", "e-mail address")
	cmd.Flags().StringVar(&req.Doc, "doc", "", "CPF, digits or 000.000.000-00")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "ask for missing fields on stdin")
	passwordFlags(cmd)
	return cmd
}

var signUpLabels = map[string]string{
	"doc":             "CPF",
	"name":            "Full name",
	"username":        "Username",
	"email":           "E-mail",
	"password":        "Password",
	"confirmPassword": "Confirm password",
}

// promptSignUp fills the sign-up form from stdin and submits it. Fields the
// server rejects are asked for again.
func promptSignUp(cmd *cobra.Command, c *client.Client, req api.SignUpRequest) (api.UserResponse, error) {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.ErrOrStderr()
	form := req.Form()
	if password, _ := cmd.Flags().GetString("password"); password != "" {
		form["password"], form["confirmPassword"] = password, password
	}
	tracker := validation.NewTracker(validation.SignUp)

	for {
		if err := promptForm(in, out, validation.SignUp, signUpLabels, form, tracker); err != nil {
			return api.UserResponse{}, err
		}
		if !tracker.Submit(form) {
			return api.UserResponse{}, &client.ValidationError{Status: http.StatusUnprocessableEntity, Message: "invalid input", Fields: tracker.Errors()}
		}
		user, err := c.SignUp(cmd.Context(), api.SignUpRequest{
			Doc:             form.Get("doc"),
			Name:            form.Get("name"),
			Username:        form.Get("username"),
			Email:           form.Get("email"),
			Password:        form["password"],
			ConfirmPassword: form["confirmPassword"],
		})
		var verr *client.ValidationError
		if !errors.As(err, &verr) || !promptable(verr.Fields) {
			return user, err
		}
		tracker.SetErrors(verr.Fields)
		for _, field := range sortedKeys(tracker.Errors()) {
			fmt.Fprintf(out, "%s: %s\n", signUpLabels[field], verr.Fields[field])
			form[field] = ""
		}
	}
}

func promptable(fields map[string]string) bool {
	for field := range fields {
		if _, ok := signUpLabels[field]; !ok {
			return false
		}
	}
	return len(fields) > 0
}

// promptForm asks for each field of schema that does not pass yet, in
// schema order, until it does. The tracker holds the shown messages.
func promptForm(in *bufio.Reader, out io.Writer, schema *validation.Schema, labels map[string]string, form validation.Form, tracker *validation.Tracker) error {
	for _, field := range schema.Fields() {
		msg := tracker.Blur(field, form[field], form)
		for msg != "" {
			fmt.Fprintf(out, "%s: ", labels[field])
			line, err := in.ReadString('\n')
			if err != nil && (!errors.Is(err, io.EOF) || line == "") {
				return fmt.Errorf("%s: input ended", labels[field])
			}
			form[field] = strings.TrimRight(line, "\r\n")
			if msg = tracker.Blur(field, form[field], form); msg != "" {
				fmt.Fprintf(out, "  %s\n", msg)
			}
		}
	}
	return nil
}

func (a *app) signInCmd() *cobra.Command {
	var req api.SignInRequest
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Start a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			req.Password = password

			c, err := a.client()
			if err != nil {
				return err
			}
			sess, err := c.SignIn(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.printer(cmd).line("Signed in as %s (session valid until %s)", sess.Username, sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
		},
	}
	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "login name")
	passwordFlags(cmd)
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			return a.printer(cmd).line("Signed out")
		},
	}
}

func (a *app) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Extend the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			sess, err := c.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			return a.printer(cmd).line("Session valid until %s", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
		},
	}
}

func (a *app) panelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "panel",
		Short: "Show every card with its used and available limit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			panel, err := c.Panel(cmd.Context())
			if err != nil {
				return err
			}
			p := a.printer(cmd)
			if err := p.line("%s (%s)", panel.User.Name, panel.User.Username); err != nil {
				return err
			}
			if len(panel.CreditCards) == 0 {
				return p.line("No credit cards yet. Use 'faturactl card create' to add one.")
			}
			if err := p.blank(); err != nil {
				return err
			}
			return p.table(cardSummaryTable(panel.CreditCards))
		},
	}
}
