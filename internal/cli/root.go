package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sharebasket/pkg/client"
	"sharebasket/pkg/logger"
	"sharebasket/pkg/reconcile"
)

const (
	EnvPrefix     = "BASKET"
	DefaultServer = "http://localhost:8080"

	keyServer   = "server"
	keyName     = "name"
	keyInterval = "interval"
	keyTimeout  = "timeout"
	keyFormat   = "format"
	keyVerbose  = "verbose"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// RootOptions holds the resolved global settings. Values come from flags,
// then BASKET_* environment variables, then defaults.
type RootOptions struct {
	Server   string
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Format   string
	Verbose  bool

	v   *viper.Viper
	out *Printer
	log *logger.Logger
}

// Client builds an API client for the configured server.
func (o *RootOptions) Client() *client.BasketClient {
	return client.NewBasketClient(o.Server, o.Timeout)
}

func (o *RootOptions) resolve(cmd *cobra.Command) error {
	o.Server = strings.TrimSpace(o.v.GetString(keyServer))
	o.Name = strings.TrimSpace(o.v.GetString(keyName))
	o.Interval = o.v.GetDuration(keyInterval)
	o.Timeout = o.v.GetDuration(keyTimeout)
	o.Format = o.v.GetString(keyFormat)
	o.Verbose = o.v.GetBool(keyVerbose)

	if !isValidFormat(o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}
	if o.Server == "" {
		return fmt.Errorf("server address is required (--server or %s_SERVER)", EnvPrefix)
	}
	if o.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", o.Interval)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", o.Timeout)
	}

	o.out = NewPrinter(cmd.OutOrStdout(), o.Format)
	o.log = logger.Discard()
	if o.Verbose {
		o.log = logger.New(logger.Config{
			Level:   logger.DEBUG,
			Format:  logger.TEXT,
			Output:  cmd.ErrOrStderr(),
			Service: "basket",
		})
	}
	return nil
}

// NewRootCommand creates the root command of the basket CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "basket",
		Short: "Share a shopping basket",
		Long: `Create or join a shared basket, add and remove items, and follow the
running totals while other participants edit the same basket.

Every flag can also be set through the environment, e.g. BASKET_SERVER,
BASKET_NAME, BASKET_INTERVAL and BASKET_TIMEOUT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(keyServer, DefaultServer, "basket server base URL")
	flags.StringP(keyName, "n", "", "your display name in the basket")
	flags.Duration(keyInterval, reconcile.DefaultInterval, "polling interval for watch")
	flags.Duration(keyTimeout, client.DefaultTimeout, "per-request timeout")
	flags.String(keyFormat, "text", "output format (json|text)")
	flags.BoolP(keyVerbose, "v", false, "verbose output")

	opts.v.SetEnvPrefix(EnvPrefix)
	opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.v.AutomaticEnv()
	_ = opts.v.BindPFlags(flags)

	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewJoinCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewTotalsCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", errorMessage(err))
		return GetExitCode(err)
	}
	return ExitSuccess
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
