package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fatura/internal/client"
	"fatura/internal/log"
)

var version = "dev"

// app carries the per-invocation state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "faturactl",
		Short: "Command line client for the fatura credit card ledger",
		Long: `faturactl talks to a fatura server: it signs in, records purchases and
installment plans, and shows invoices and card limits as tables or CSV.

Settings come from flags, FATURA_* environment variables or
$HOME/.config/faturactl/config.yaml.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/faturactl/config.yaml)")
	flags.String("api-url", "http://localhost:8081", "base URL of the fatura server")
	flags.Duration("timeout", 30*time.Second, "HTTP request timeout")
	flags.String("session-file", "", "where the session token is stored (default: $XDG_DATA_HOME/faturactl/session.json)")
	flags.StringP("format", "o", "text", "output format (text, csv)")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")

	for _, name := range []string{"api-url", "timeout", "session-file", "format", "no-color", "log-level"} {
		_ = a.v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}

	root.AddCommand(
		a.signUpCmd(),
		a.signInCmd(),
		a.logoutCmd(),
		a.refreshCmd(),
		a.panelCmd(),
		a.cardCmd(),
		a.purchaseCmd(),
		a.subscriptionCmd(),
		a.invoiceCmd(),
		a.previewCmd(),
		versionCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		a.v.AddConfigPath(fmt.Sprintf("%s/.config/faturactl", home))
		a.v.AddConfigPath(".")
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("FATURA")
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	switch f := a.v.GetString("format"); f {
	case "text", "csv":
	default:
		return fmt.Errorf("invalid output format: %s", f)
	}

	log.SetDefault(log.New(log.ConfigTo(os.Stderr, a.v.GetString("log_level"), "text", log.ComponentClient)))
	return nil
}

// client builds an API client whose session survives between invocations.
func (a *app) client() (*client.Client, error) {
	path := a.v.GetString("session_file")
	if path == "" {
		var err error
		if path, err = client.DefaultTokenPath(); err != nil {
			return nil, err
		}
	}
	return client.New(a.v.GetString("api_url"),
		client.WithTimeout(a.v.GetDuration("timeout")),
		client.WithTokenStore(client.NewFileTokenStore(path)))
}

// printer returns the renderer for cmd's output stream.
func (a *app) printer(cmd *cobra.Command) *printer {
	out := cmd.OutOrStdout()
	return &printer{
		out:    out,
		csv:    a.v.GetString("format") == "csv",
		styled: !a.v.GetBool("no_color") && os.Getenv("NO_COLOR") == "" && isTerminal(out),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// describeError turns client failures into hints a person can act on.
func describeError(err error) string {
	var verr *client.ValidationError
	switch {
	case errors.As(err, &verr):
		if len(verr.Fields) == 0 {
			return "Error: " + verr.Message
		}
		var b strings.Builder
		b.WriteString("Error: " + verr.Message)
		for _, field := range sortedKeys(verr.Fields) {
			fmt.Fprintf(&b, "\n  %s: %s", field, verr.Fields[field])
		}
		return b.String()
	case errors.Is(err, client.ErrUnauthorized):
		return "Error: not signed in, run 'faturactl signin' first"
	case errors.Is(err, client.ErrRateLimited):
		return "Error: too many requests, try again in a minute"
	case errors.Is(err, client.ErrTransport):
		return "Error: cannot reach the server: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "faturactl %s\n", version)
			return err
		},
	}
}
