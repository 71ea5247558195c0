// Package cli implements the storefront command line client.
package cli

import (
	"github.com/me/storefront/internal/config"
	"github.com/me/storefront/internal/logging"
	"github.com/spf13/cobra"
)

// skipWiring marks commands that do not use the client session.
const skipWiring = "skip-wiring"

// rootFlags override values loaded from the environment when set.
type rootFlags struct {
	apiURL           string
	stateDir         string
	durableBackend   string
	ephemeralBackend string
	routesFile       string
	debug            bool
	logLevel         string
	logFormat        string
}

// NewRootCmd creates the root cobra command for the storefront CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}
	var flags rootFlags

	root := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront API client",
		Long: "storefront logs in to the storefront API, keeps the session between runs,\n" +
			"sends authenticated requests and previews guarded page navigation.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClientConfig()
			if err != nil {
				return err
			}
			flags.apply(&cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
			a.logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, a.errOut)
			if cmd.Annotations[skipWiring] != "" {
				return nil
			}
			return a.wire(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.apiURL, "api-url", "", "API base URL (or STOREFRONT_API_URL env)")
	pf.StringVar(&flags.stateDir, "state-dir", "", "Directory of the remembered session (or STOREFRONT_STATE_DIR env)")
	pf.StringVar(&flags.durableBackend, "durable-backend", "", "Remembered session storage: sqlite, redis, memory")
	pf.StringVar(&flags.ephemeralBackend, "ephemeral-backend", "", "Terminal session storage: sqlite, memory")
	pf.StringVar(&flags.routesFile, "routes", "", "YAML route table replacing the built-in one")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newStatusCmd(a),
		newRequestCmd(a, "get"),
		newRequestCmd(a, "delete"),
		newRequestCmd(a, "post"),
		newRequestCmd(a, "put"),
		newNavigateCmd(a),
		newRoutesCmd(a),
		newServeCmd(a),
		newDevAPICmd(a),
	)

	// Stores opened by the pre-run are closed however the command ends.
	for _, c := range root.Commands() {
		run := c.RunE
		if run == nil {
			continue
		}
		c.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if cerr := a.close(); err == nil {
				err = cerr
			}
			return err
		}
	}

	return root
}

func (f *rootFlags) apply(cfg *config.ClientConfig) {
	if f.apiURL != "" {
		cfg.BaseURL = f.apiURL
	}
	if f.stateDir != "" {
		cfg.StateDir = f.stateDir
	}
	if f.durableBackend != "" {
		cfg.DurableBackend = f.durableBackend
	}
	if f.ephemeralBackend != "" {
		cfg.EphemeralBackend = f.ephemeralBackend
	}
	if f.routesFile != "" {
		cfg.RoutesFile = f.routesFile
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.logFormat != "" {
		cfg.LogFormat = f.logFormat
	}
	if f.debug {
		cfg.LogLevel = "debug"
	}
	cfg.Sanitize()
}
