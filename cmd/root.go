// Package cmd wires configuration, logging and the API client into the
// bigkill command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/entro314-labs/bigkill/internal/api"
	"github.com/entro314-labs/bigkill/internal/config"
	"github.com/entro314-labs/bigkill/internal/failure"
	"github.com/entro314-labs/bigkill/internal/logger"
	"github.com/entro314-labs/bigkill/internal/results"
	"github.com/entro314-labs/bigkill/internal/scan"
	"github.com/entro314-labs/bigkill/internal/tui"
)

// flagKeys maps config keys to the flags that override them. A flag only
// counts on commands that declare it.
var flagKeys = map[string]string{
	"base_url":      "url",
	"logging.level": "log-level",
	"logging.file":  "log-file",
	"min_size_mb":   "min-size",
	"only_temp":     "only-temp",
	"category":      "category",
	"sort":          "sort",
}

// app holds what every command needs once flags are parsed.
type app struct {
	v       *viper.Viper
	cfgFile string

	cfg    config.Config
	log    zerolog.Logger
	closer io.Closer
	client *api.Client
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "bigkill [path]",
		Short: "Find and remove large files through a bigkill scan server",
		Long: `bigkill talks to a large-file scan server. Without a subcommand it opens an
interactive view: enter a folder, watch the scan progress, then filter, sort and
delete the files it found. Pass a path to start scanning right away.

The subcommands expose the same operations for scripts.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		RunE: a.runTUI,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./.bigkill.yaml, then ~/.config/bigkill/config.yaml)")
	pf.String("url", config.DefaultBaseURL, "scan server base URL")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error, off")
	pf.String("log-file", "", "append JSON logs to this file")

	addScanFlags(root.Flags())
	addViewFlags(root.Flags())

	root.AddCommand(
		newScanCmd(a),
		newStatusCmd(a),
		newFilesCmd(a),
		newDeleteCmd(a),
		newDeleteSafeCmd(a),
		newOpenCmd(a),
	)
	return root
}

func addScanFlags(fs *pflag.FlagSet) {
	fs.Float64("min-size", config.DefaultMinSizeMB, "minimum file size in MB")
	fs.Bool("only-temp", false, "only report temporary files")
}

func addViewFlags(fs *pflag.FlagSet) {
	fs.String("category", config.DefaultCategory, "show only this category")
	fs.String("sort", config.DefaultSort, "sort order: largest or smallest")
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// The interactive view owns the terminal, so it only logs to the file.
	var console io.Writer = cmd.ErrOrStderr()
	if cmd == cmd.Root() {
		console = nil
	}
	log, closer, err := logger.New(cfg.Logging.Level, cfg.Logging.File, console)
	if err != nil {
		return err
	}
	a.log = log
	a.closer = closer

	a.client = api.NewClient(cfg.BaseURL, api.WithTimeout(cfg.RequestTimeout), api.WithLogger(log))
	log.Debug().Str("config", cfg.File).Str("url", cfg.BaseURL).Dur("poll_interval", cfg.PollInterval).Msg("configuration loaded")
	return nil
}

func (a *app) close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func (a *app) newController(ctx context.Context) *scan.Controller {
	return scan.NewController(ctx, a.client, a.cfg.PollInterval, a.log)
}

func (a *app) newView() *results.View {
	view := results.NewView(a.client, a.log)
	view.SetFilter(a.cfg.Category)
	view.SetSort(results.SortKey(a.cfg.Sort))
	return view
}

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ctrl := a.newController(ctx)
	defer ctrl.Close()

	opts := tui.Options{
		BaseURL:   a.cfg.BaseURL,
		MinSizeMB: a.cfg.MinSizeMB,
		OnlyTemp:  a.cfg.OnlyTemp,
	}
	if len(args) == 1 {
		opts.Path = args[0]
		opts.AutoStart = true
	}

	m := tui.New(ctx, ctrl, a.newView(), opts, a.log)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run program: %w", err)
	}
	return nil
}

// userError reduces a classified failure to the sanitised text the user
// should see. The cause has already been logged by the component that
// produced it.
func userError(err error) error {
	if err == nil || failure.KindOf(err) == 0 {
		return err
	}
	return errors.New(results.Sanitize(failure.Message(err)))
}
