package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kris-hansen/runa/utils/builtin"
	"github.com/kris-hansen/runa/utils/config"
	"github.com/kris-hansen/runa/utils/executor"
	"github.com/kris-hansen/runa/utils/report"
)

// version is a placeholder for the version string, which will be set at build time.
var version string

var verbose bool
var debug bool
var configPath string

// app is the runtime context, built in PersistentPreRunE
var app *appContext

// logFile holds the log file handle for proper cleanup
var logFile *os.File

// stdio returns the streams commands are attached to.
var stdio = func() streams {
	return streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

var rootCmd = &cobra.Command{
	Use:   "runa [command] [args...]",
	Short: "A pluggable task runner with templated file generation",
	Long: `Runa runs commands discovered from built-ins, YAML task files and scripts.

Commands are looked up in order: built-in commands, then every directory in
command_dirs (by default ~/.runa/commands and .runa/commands in the project).
A later definition replaces an earlier one with the same name.

  runa                      List available commands
  runa list full            List commands with their source
  runa generate <form>      Fill in a form and render its templates
  runa deploy [type]        Run the deploy sequence

Configuration is stored in ~/.runa/config.yaml`,
	Args:              cobra.ArbitraryArgs,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Configure log output format - remove timestamps for cleaner CLI output
		log.SetFlags(0)

		if logFileName := os.Getenv("RUNA_LOG_FILE"); logFileName != "" {
			if file, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666); err == nil {
				logFile = file
				log.SetOutput(file)
				log.Printf("[INFO] Logging session started at %s\n", time.Now().Format(time.RFC3339))
			} else {
				log.Printf("[WARN] Failed to open log file '%s': %v. Continuing with stderr logging.\n", logFileName, err)
			}
		}

		config.Verbose = verbose
		config.Debug = debug

		path := configPath
		if path == "" {
			path = config.GetConfigPath()
		}
		config.VerboseLog("Loading configuration from %s", path)

		var err error
		app, err = newAppContext(path, stdio())
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogFile()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return builtin.List(app.Out, app.Registry, builtin.FormatUsage)
		}
		return app.Executor.Run(cmd.Context(), args[0], args[1:])
	},
}

func closeLogFile() {
	if logFile == nil {
		return
	}
	log.Printf("[INFO] Logging session ended at %s\n", time.Now().Format(time.RFC3339))
	if err := logFile.Sync(); err != nil {
		log.Printf("[WARN] Failed to sync log file: %v\n", err)
	}
	logFile.Close()
	logFile = nil
	log.SetOutput(os.Stderr)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (default $RUNA_CONFIG or ~/.runa/config.yaml)")
	// everything after the command name belongs to the command
	rootCmd.Flags().SetInterspersed(false)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

// getVersion returns the version string.
// Priority: build-time ldflags > VERSION file (for development)
func getVersion() string {
	if version != "" {
		return version
	}

	_, filename, _, ok := runtime.Caller(0)
	if ok {
		projectRoot := filepath.Dir(filepath.Dir(filename))
		content, err := os.ReadFile(filepath.Join(projectRoot, "VERSION"))
		if err == nil {
			return "v" + strings.TrimSpace(string(content)) + "-dev"
		}
	}

	return "unknown (build with: go build -ldflags \"-X 'github.com/kris-hansen/runa/cmd.version=vX.Y.Z'\")"
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "runa version: %s\n", getVersion())
	},
}

// handleError prints err once. Unknown commands also get the command list.
func handleError(err error) {
	if app == nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	if errors.Is(err, executor.ErrHandlerPanic) {
		app.Reporter.Failure(err)
		return
	}
	app.Reporter.Error(err)

	var unknown *executor.UnknownCommandError
	if errors.As(err, &unknown) {
		app.Reporter.Notef("available commands:")
		if listErr := builtin.List(app.Reporter.Writer(), app.Registry, builtin.FormatSimple); listErr != nil {
			log.Printf("[WARN] %v\n", listErr)
		}
	}
}

func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		if !report.IsReported(err) {
			handleError(err)
		}
		closeLogFile()
		stop()
		os.Exit(1)
	}
}
