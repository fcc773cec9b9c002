// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/ZisisKostakakis/property-pal-scraper/config"
	"github.com/ZisisKostakakis/property-pal-scraper/geocode"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
	now    func() time.Time
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", w.now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr, now: time.Now})
}

// rootOptions are the settings shared by every command. Flags override the
// configuration files and the environment.
type rootOptions struct {
	ConfigFile    string
	EnvFile       string
	Verbose       bool
	TraceHTTP     bool
	TraceHTTPBody bool
	CacheFile     string
	Providers     []string
	MaxRetries    int
	BaseDelay     float64
}

var options = &rootOptions{}

var rootCmd = &cobra.Command{
	Use:   "propertypal",
	Short: "geocoding for property listings",
	Long: `
propertypal resolves listing addresses to coordinates through a chain of
geocoding providers, caches the answers (failures included) and measures
distances to a destination.
`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if options.Verbose {
			geocode.Debugf = log.Printf
		}
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version

	// an interrupt abandons the resolution in flight without caching it
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the flags given on the
// command line.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(options.ConfigFile, options.EnvFile)
	if err != nil {
		return nil, err
	}

	flags := rootCmd.PersistentFlags()
	if flags.Changed("cache-file") {
		cfg.Geocoding.CacheFile = options.CacheFile
	}

	if flags.Changed("providers") {
		cfg.Geocoding.Providers = options.Providers
	}

	if flags.Changed("max-retries") {
		cfg.Geocoding.MaxRetries = options.MaxRetries
	}

	if flags.Changed("base-delay") {
		cfg.Geocoding.BaseDelay = options.BaseDelay
	}

	if cfg.Geocoding.UserAgent == "" {
		cfg.Geocoding.UserAgent = fmt.Sprintf(
			"propertypal/%s (+https://github.com/ZisisKostakakis/property-pal-scraper)",
			Version,
		)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	return cfg, nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(
		&options.ConfigFile,
		"config",
		config.DefaultConfigFile,
		"YAML configuration file",
	)
	flags.StringVar(
		&options.EnvFile,
		"env-file",
		config.DefaultEnvFile,
		"dotenv file with credentials",
	)
	flags.BoolVarP(
		&options.Verbose,
		"verbose",
		"v",
		false,
		"Log every provider attempt",
	)
	flags.BoolVar(
		&options.TraceHTTP,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	flags.BoolVar(
		&options.TraceHTTPBody,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)
	flags.StringVar(
		&options.CacheFile,
		"cache-file",
		"",
		"Geocoding cache file",
	)
	flags.StringSliceVar(
		&options.Providers,
		"providers",
		nil,
		"Geocoding providers in priority order",
	)
	flags.IntVar(
		&options.MaxRetries,
		"max-retries",
		0,
		"Attempts per provider",
	)
	flags.Float64Var(
		&options.BaseDelay,
		"base-delay",
		0,
		"Base backoff delay in seconds, also the pause after each resolution",
	)
}
