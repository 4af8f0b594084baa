package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hellausefulsoftware/gitircbot/internal/bot"
	"github.com/hellausefulsoftware/gitircbot/internal/cache"
	"github.com/hellausefulsoftware/gitircbot/internal/config"
	"github.com/hellausefulsoftware/gitircbot/internal/console"
	"github.com/hellausefulsoftware/gitircbot/internal/github"
	"github.com/hellausefulsoftware/gitircbot/internal/irc"
	"github.com/hellausefulsoftware/gitircbot/internal/logging"
	"github.com/hellausefulsoftware/gitircbot/internal/shortener"
	"github.com/hellausefulsoftware/gitircbot/internal/tracker"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Initialize logger with default configuration
	logging.Initialize(nil)

	var configPath string
	var logLevel string
	var logJSON bool

	rootCmd := &cobra.Command{
		Use:   "gitircbot",
		Short: "Relays GitHub issues to and from IRC channels",
		Long: `An IRC bot that answers commands about a GitHub repository's issues,
creates issues and comments on behalf of channel operators, and announces
issues mentioned as #123 in channel text.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Set logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Output logs in JSON format")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Initialize(&logging.Config{
			Level:      logging.ParseLevel(logLevel),
			Output:     os.Stderr,
			JSONFormat: logJSON,
		})
	}

	var withConsole bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to IRC and serve commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			applyLoggingConfig(cmd, cfg)
			return run(cfg, withConsole)
		},
	}
	runCmd.Flags().BoolVar(&withConsole, "console", false, "Read operator commands from stdin")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the GitHub token and repository access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			client := github.NewClient(cfg.GitHub.Token)
			login, err := client.VerifyAccess(cmd.Context(), cfg.GitHub.Owner, cfg.GitHub.Repository)
			if err != nil {
				return err
			}
			fmt.Printf("Authenticated as %s with issue access to %s/%s\n", login, cfg.GitHub.Owner, cfg.GitHub.Repository)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("gitircbot", version)
		},
	}

	rootCmd.AddCommand(runCmd, checkCmd, versionCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logging.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// applyLoggingConfig lets the config file set logging unless flags did.
func applyLoggingConfig(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	level, _ := flags.GetString("log-level")
	if !flags.Changed("log-level") && cfg.Logging.Level != "" {
		level = cfg.Logging.Level
	}
	jsonFormat, _ := flags.GetBool("log-json")
	if !flags.Changed("log-json") {
		jsonFormat = cfg.Logging.JSONFormat
	}

	logging.Initialize(&logging.Config{
		Level:      logging.ParseLevel(level),
		Output:     os.Stderr,
		JSONFormat: jsonFormat,
	})
}

func run(cfg *config.Config, withConsole bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info("Starting gitircbot", "version", version,
		"repository", cfg.GitHub.Owner+"/"+cfg.GitHub.Repository)

	var short tracker.Shortener
	if cfg.Shortener.APIKey != "" {
		short = shortener.NewClient(cfg.Shortener.Endpoint, cfg.Shortener.APIKey)
	} else {
		logging.Info("No shortener API key configured, links will not be shortened")
	}

	service := tracker.NewService(
		github.NewClient(cfg.GitHub.Token),
		cache.NewIssueCache(cfg.CacheTTL()),
		short,
		tracker.Project{
			Owner:         cfg.GitHub.Owner,
			Repo:          cfg.GitHub.Repository,
			DefaultBranch: cfg.GitHub.DefaultBranch,
		},
	)

	conn := irc.NewClient(cfg.IRC)
	b := bot.New(conn, service, bot.Options{
		Prefix:               cfg.IRC.CommandPrefix,
		MaxConcurrentLookups: cfg.Scanner.MaxConcurrent,
	})

	if withConsole {
		go func() {
			if console.New(conn, os.Stdout).Run(ctx, os.Stdin) {
				stop()
			}
		}()
	}

	err := conn.Run(ctx, b)
	b.Wait()
	logging.Info("gitircbot stopped")
	return err
}
