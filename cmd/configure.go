package cmd

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kris-hansen/runa/utils/config"
	"github.com/kris-hansen/runa/utils/fileutil"
	"github.com/kris-hansen/runa/utils/form"
)

var listFlag bool
var templatesFlag string
var addDirFlag string
var pathFlags []string

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure template sources, command directories and path macros",
	Long: `Configure runa. Without flags, asks for the template source interactively.

Settings are written to the configuration file (see --config).`,
	Example: `  runa configure --list
  runa configure --templates https://example.com/runa
  runa configure --add-dir ~/scripts --path theme=web/themes/custom`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listFlag {
			listConfiguration(app.Out, app.ConfigPath, app.Config)
			return nil
		}

		cfg := app.Config
		changed := false

		if templatesFlag != "" {
			setTemplateSource(cfg, templatesFlag)
			changed = true
		}
		if addDirFlag != "" {
			dir, err := fileutil.ExpandPath(addDirFlag)
			if err != nil {
				return fmt.Errorf("invalid --add-dir %q: %w", addDirFlag, err)
			}
			if !slices.Contains(cfg.CommandDirs, dir) {
				cfg.CommandDirs = append(cfg.CommandDirs, dir)
			}
			changed = true
		}
		for _, kv := range pathFlags {
			name, value, ok := strings.Cut(kv, "=")
			if !ok || name == "" {
				return fmt.Errorf("invalid --path %q, expected name=path", kv)
			}
			cfg.Paths[name] = value
			changed = true
		}

		if !changed {
			current, _ := cfg.TemplateSource(app.Root)
			answer, err := app.Driver.Input(cmd.Context(), form.InputConfig{
				Message: "Template source (URL or directory):",
				Default: current,
			})
			if err != nil {
				return err
			}
			if answer = strings.TrimSpace(answer); answer == "" || answer == current {
				app.Reporter.Notef("configuration unchanged")
				return nil
			}
			setTemplateSource(cfg, answer)
		}

		if err := config.SaveConfig(cmd.Context(), app.ConfigPath, cfg); err != nil {
			return fmt.Errorf("error saving configuration: %w", err)
		}
		app.Reporter.Successf("configuration saved to %s", app.ConfigPath)
		return nil
	},
}

func setTemplateSource(cfg *config.Config, source string) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		cfg.Templates.URL = source
		return
	}
	cfg.Templates.URL = ""
	cfg.Templates.Dir = source
}

func listConfiguration(w io.Writer, path string, cfg *config.Config) {
	fmt.Fprintf(w, "Configuration from %s:\n\n", path)

	fmt.Fprintln(w, "Command directories:")
	for _, d := range cfg.CommandDirs {
		fmt.Fprintf(w, "  - %s\n", d)
	}

	fmt.Fprintln(w, "\nTemplates:")
	if cfg.Templates.URL != "" {
		fmt.Fprintf(w, "  URL: %s\n", cfg.Templates.URL)
	} else {
		fmt.Fprintf(w, "  Directory: %s\n", cfg.Templates.Dir)
	}
	fmt.Fprintf(w, "  Retries: %d\n", cfg.Templates.Retries)

	if len(cfg.Paths) > 0 {
		fmt.Fprintln(w, "\nPaths:")
		names := make([]string, 0, len(cfg.Paths))
		for name := range cfg.Paths {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  @%s: %s\n", name, cfg.Paths[name])
		}
	}

	fmt.Fprintln(w, "\nTools:")
	fmt.Fprintf(w, "  git: %s\n  composer: %s\n  drush: %s\n", cfg.Tools.Git, cfg.Tools.Composer, cfg.Tools.Drush)
}

func init() {
	configureCmd.Flags().BoolVar(&listFlag, "list", false, "Show the current configuration")
	configureCmd.Flags().StringVar(&templatesFlag, "templates", "", "Set the template source (URL or directory)")
	configureCmd.Flags().StringVar(&addDirFlag, "add-dir", "", "Add a command directory")
	configureCmd.Flags().StringArrayVar(&pathFlags, "path", nil, "Add a path macro as name=path (repeatable)")
	rootCmd.AddCommand(configureCmd)
}
