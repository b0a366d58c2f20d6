// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"funidl/internal/config"
	"funidl/internal/extractor"
	"funidl/internal/funimation"
	"funidl/internal/httputil"
	"funidl/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagLanguages        []string
	flagVersions         []string
	flagSeparateVersions bool
	flagRegion           string
	flagUsername         string
	flagPassword         string
	flagCookies          string
	flagArchive          bool
	flagJSON             bool
	flagDebug            bool
	flagSubLang          string
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

// log is the command logger, configured by loadConfig.
var log = zerolog.Nop()

var rootCmd = &cobra.Command{
	Use:   "funidl [url]...",
	Short: "Extract episode metadata and formats from Funimation",
	Long: `funidl resolves Funimation show, episode, player and metadata URLs into
episode information: titles, every language/version's formats and subtitles.`,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: loadConfig,
	RunE:              extractRun,
	SilenceUsage:      true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringSliceVarP(&flagLanguages, "language", "l", nil, "Audio languages to extract, most preferred first")
	pf.StringSliceVar(&flagVersions, "version-filter", nil, "Versions to extract (uncut, simulcast, ...), most preferred first")
	pf.BoolVar(&flagSeparateVersions, "separate-versions", false, "Only extract the experience a player URL points at")
	pf.StringVar(&flagRegion, "region", "", "Catalogue region (two-letter country code)")
	pf.StringVarP(&flagUsername, "username", "u", "", "Account username")
	pf.StringVarP(&flagPassword, "password", "p", "", "Account password")
	pf.StringVar(&flagCookies, "cookies", "", "Netscape cookies.txt file to load")
	pf.BoolVar(&flagArchive, "archive", false, "Skip archived episodes and record new ones")
	pf.BoolVarP(&flagJSON, "json", "j", false, "Output results as JSON")
	pf.BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")
	pf.StringVar(&flagSubLang, "sub-lang", "", "Preferred subtitle language (default: en)")

	rootCmd.AddCommand(formatsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(extractorsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if len(flagLanguages) > 0 {
		cfg.Languages = flagLanguages
	}
	if len(flagVersions) > 0 {
		cfg.Versions = flagVersions
	}
	if flagSeparateVersions {
		cfg.SeparateVersions = true
	}
	if flagRegion != "" {
		cfg.Region = flagRegion
	}
	if flagUsername != "" {
		cfg.Username = flagUsername
	}
	if flagPassword != "" {
		cfg.Password = flagPassword
	}
	if flagCookies != "" {
		cfg.Cookies = flagCookies
	}
	if flagArchive {
		cfg.Archive = true
	}
	if flagSubLang != "" {
		cfg.SubsLanguage = flagSubLang
	}
	if flagDebug {
		cfg.Debug = true
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log = logging.Init(os.Stderr, cfg.Debug)
	return nil
}

// options translates the configuration into extractor options.
func options(c *config.Config) extractor.Options {
	args := extractor.Args{}
	if len(c.Languages) > 0 {
		args.Set("funimation", "language", c.Languages...)
	}
	if len(c.Versions) > 0 {
		args.Set("funimation", "version", c.Versions...)
	}
	opts := extractor.Options{Args: args}
	if c.SeparateVersions {
		opts.Compat = append(opts.Compat, extractor.CompatSeparateVersions)
	}
	return opts
}

// newRegistry builds the HTTP client, loads cookies and registers the
// Funimation extractors. The client is returned for follow-up downloads
// that must share the session's cookies.
func newRegistry() (*extractor.Registry, *http.Client, error) {
	client := httputil.NewClient(cfg.Timeout.Duration)
	if err := loadCookies(client); err != nil {
		return nil, nil, err
	}

	session := funimation.NewSession(funimation.Config{
		Client:      client,
		Log:         log.With().Str("component", "funimation").Logger(),
		Options:     options(cfg),
		Region:      cfg.Region,
		Locale:      cfg.Locale,
		Username:    cfg.Username,
		Password:    cfg.Password,
		Concurrency: cfg.Concurrency,
	})

	reg := extractor.NewRegistry(log)
	reg.Register(session.Extractors()...)
	return reg, client, nil
}

func loadCookies(client *http.Client) error {
	if cfg.Cookies == "" {
		return nil
	}
	path, err := config.ExpandPath(cfg.Cookies)
	if err != nil {
		return err
	}
	n, err := httputil.LoadCookies(client, path)
	if err != nil {
		return fmt.Errorf("loading cookies: %w", err)
	}
	log.Debug().Int("cookies", n).Str("file", path).Msg("loaded cookies")
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "funidl %s\n", Version)
	},
}
