package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/schmitthub/crispy-succotash/internal/config"
	"github.com/schmitthub/crispy-succotash/internal/dist"
	"github.com/schmitthub/crispy-succotash/internal/fetcher"
	"github.com/schmitthub/crispy-succotash/internal/versions"
)

const (
	envPrefix             = "CRISPY_SUCCOTASH_"
	annotationUpdateCheck = "update-check"
)

type runtimeOptions struct {
	ConfigPath    string
	OutDir        string
	BaseURL       string
	Floor         string
	Retries       int
	Timeout       time.Duration
	Debug         bool
	NoUpdateCheck bool
}

func NewRootCmd(buildVersion, buildDate string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crispy-succotash",
		Short:         "Download Node.js headers for the latest release of every major version",
		Args:          cobra.NoArgs,
		Version:       buildVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		Annotations:   map[string]string{},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := mergedOptions(cmd)
			if err != nil {
				return err
			}
			setupLogging(cmd, opts.Debug)
			cmd.Root().Annotations[annotationUpdateCheck] = strconv.FormatBool(!opts.NoUpdateCheck)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := mergedOptions(cmd)
			if err != nil {
				return err
			}
			return runFetch(cmd, opts)
		},
	}

	cmd.SetVersionTemplate(formatVersion(buildVersion, buildDate))

	cmd.Flags().StringP("config", "f", "", "Path to YAML config file")
	cmd.Flags().StringP("out-dir", "o", "", "Output directory (default: a new temporary directory)")
	cmd.Flags().String("base-url", dist.DefaultBaseURL, "Release index base URL")
	cmd.Flags().String("floor", versions.DefaultFloor, "Ignore releases older than this version")
	cmd.Flags().Int("retries", 0, "Retry attempts for failed requests")
	cmd.Flags().Duration("timeout", 0, "Per-request timeout (0 disables)")
	cmd.Flags().Bool("debug", false, "Enable debug logging")
	cmd.Flags().Bool("no-update-check", false, "Skip the new release notice")

	return cmd
}

// UpdateCheckEnabled reports whether the post-run release notice should run
// for an executed root command.
func UpdateCheckEnabled(cmd *cobra.Command) bool {
	return cmd.Annotations[annotationUpdateCheck] == "true"
}

func runFetch(cmd *cobra.Command, opts runtimeOptions) error {
	floor, err := versions.ParseFloor(opts.Floor)
	if err != nil {
		return err
	}

	client := dist.NewClient(dist.Options{
		BaseURL:       opts.BaseURL,
		Timeout:       opts.Timeout,
		RetryAttempts: opts.Retries,
		Logger:        &log.Logger,
	})

	f, err := fetcher.New(fetcher.Options{
		Client: client,
		OutDir: opts.OutDir,
		Floor:  floor,
		Logger: &log.Logger,
	})
	if err != nil {
		return err
	}

	result, err := f.Run(cmd.Context())
	if err != nil {
		return err
	}

	log.Debug().
		Str("outdir", result.OutDir).
		Int("releases", len(result.Selected)).
		Int("files", len(result.Downloads)).
		Msg("Fetch complete")

	fmt.Fprintln(cmd.OutOrStdout(), "Done.")
	return nil
}

func setupLogging(cmd *cobra.Command, debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	logWriter := zerolog.ConsoleWriter{
		Out:        cmd.ErrOrStderr(),
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(logWriter).Level(level).With().Timestamp().Logger()
}

func mergedOptions(cmd *cobra.Command) (runtimeOptions, error) {
	flags, err := flagOptions(cmd)
	if err != nil {
		return runtimeOptions{}, err
	}

	merged := runtimeOptions{
		ConfigPath: flags.ConfigPath,
		BaseURL:    dist.DefaultBaseURL,
		Floor:      versions.DefaultFloor,
	}

	if merged.ConfigPath != "" {
		fileCfg, err := config.Load(merged.ConfigPath)
		if err != nil {
			return runtimeOptions{}, err
		}

		if fileCfg.OutDir != "" {
			merged.OutDir = fileCfg.OutDir
		}
		if fileCfg.BaseURL != "" {
			merged.BaseURL = fileCfg.BaseURL
		}
		if fileCfg.Floor != "" {
			merged.Floor = fileCfg.Floor
		}
		if fileCfg.Retries != nil {
			merged.Retries = *fileCfg.Retries
		}
		if fileCfg.Timeout != "" {
			parsed, err := time.ParseDuration(strings.TrimSpace(fileCfg.Timeout))
			if err != nil {
				return runtimeOptions{}, fmt.Errorf("parse config timeout: %w", err)
			}
			merged.Timeout = parsed
		}
		if fileCfg.Debug != nil {
			merged.Debug = *fileCfg.Debug
		}
		if fileCfg.NoUpdateCheck != nil {
			merged.NoUpdateCheck = *fileCfg.NoUpdateCheck
		}
	}

	if err := applyEnvOverrides(&merged); err != nil {
		return runtimeOptions{}, err
	}

	if cmd.Flags().Changed("out-dir") {
		merged.OutDir = flags.OutDir
	}
	if cmd.Flags().Changed("base-url") {
		merged.BaseURL = flags.BaseURL
	}
	if cmd.Flags().Changed("floor") {
		merged.Floor = flags.Floor
	}
	if cmd.Flags().Changed("retries") {
		merged.Retries = flags.Retries
	}
	if cmd.Flags().Changed("timeout") {
		merged.Timeout = flags.Timeout
	}
	if cmd.Flags().Changed("debug") {
		merged.Debug = flags.Debug
	}
	if cmd.Flags().Changed("no-update-check") {
		merged.NoUpdateCheck = flags.NoUpdateCheck
	}

	merged.OutDir = strings.TrimSpace(merged.OutDir)
	merged.BaseURL = strings.TrimSpace(merged.BaseURL)
	merged.Floor = strings.TrimSpace(merged.Floor)

	if merged.BaseURL == "" {
		merged.BaseURL = dist.DefaultBaseURL
	}
	if merged.Floor == "" {
		merged.Floor = versions.DefaultFloor
	}
	if merged.Retries < 0 {
		return runtimeOptions{}, fmt.Errorf("retries cannot be negative: %d", merged.Retries)
	}

	return merged, nil
}

func flagOptions(cmd *cobra.Command) (runtimeOptions, error) {
	var opts runtimeOptions
	var err error
	fs := cmd.Flags()

	if opts.ConfigPath, err = fs.GetString("config"); err != nil {
		return runtimeOptions{}, err
	}
	if opts.OutDir, err = fs.GetString("out-dir"); err != nil {
		return runtimeOptions{}, err
	}
	if opts.BaseURL, err = fs.GetString("base-url"); err != nil {
		return runtimeOptions{}, err
	}
	if opts.Floor, err = fs.GetString("floor"); err != nil {
		return runtimeOptions{}, err
	}
	if opts.Retries, err = fs.GetInt("retries"); err != nil {
		return runtimeOptions{}, err
	}
	if opts.Timeout, err = fs.GetDuration("timeout"); err != nil {
		return runtimeOptions{}, err
	}
	if opts.Debug, err = fs.GetBool("debug"); err != nil {
		return runtimeOptions{}, err
	}
	if opts.NoUpdateCheck, err = fs.GetBool("no-update-check"); err != nil {
		return runtimeOptions{}, err
	}
	return opts, nil
}

func applyEnvOverrides(opts *runtimeOptions) error {
	if value, ok := getenvTrim(envPrefix + "OUT_DIR"); ok {
		opts.OutDir = value
	}
	if value, ok := getenvTrim(envPrefix + "BASE_URL"); ok {
		opts.BaseURL = value
	}
	if value, ok := getenvTrim(envPrefix + "FLOOR"); ok {
		opts.Floor = value
	}

	if value, ok := getenvTrim(envPrefix + "RETRIES"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse %sRETRIES as int: %w", envPrefix, err)
		}
		opts.Retries = parsed
	}
	if value, ok := getenvTrim(envPrefix + "TIMEOUT"); ok {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("parse %sTIMEOUT as duration: %w", envPrefix, err)
		}
		opts.Timeout = parsed
	}
	if value, ok := getenvTrim(envPrefix + "DEBUG"); ok {
		parsed, err := parseBoolEnv(envPrefix+"DEBUG", value)
		if err != nil {
			return err
		}
		opts.Debug = parsed
	}
	if value, ok := getenvTrim(envPrefix + "NO_UPDATE_CHECK"); ok {
		parsed, err := parseBoolEnv(envPrefix+"NO_UPDATE_CHECK", value)
		if err != nil {
			return err
		}
		opts.NoUpdateCheck = parsed
	}
	return nil
}

func getenvTrim(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func parseBoolEnv(name, raw string) (bool, error) {
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s as bool: %w", name, err)
	}
	return parsed, nil
}
