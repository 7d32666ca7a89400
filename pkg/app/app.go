package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"

	rsvclient "github.com/birdayz/rsv/pkg/client"
	"github.com/birdayz/rsv/pkg/codec"
	"github.com/birdayz/rsv/pkg/config"
	"github.com/birdayz/rsv/pkg/topic"
)

// App holds all shared mutable state for the CLI. It is created once per
// invocation and threaded into every command package.
type App struct {
	// I/O
	OutWriter    io.Writer
	ErrWriter    io.Writer
	InReader     io.Reader
	ColorableOut io.Writer

	// Config state
	Cfg             config.Config
	CurrentCluster  *config.Cluster
	CfgFile         string
	ClusterOverride string
	BrokersFlag     []string

	// Table handling
	NoStrict bool
	Null     string

	// Logging
	Verbose  bool
	LogLevel *slog.LevelVar
	Logger   *slog.Logger

	// Display
	Prettyfmt    *prettyjson.Formatter
	NoHeaderFlag bool

	// Root command reference (for completion generation)
	Root *cobra.Command
}

// New creates an App with sane defaults.
func New() *App {
	prettyfmt := prettyjson.NewFormatter()
	prettyfmt.DisabledColor = !isatty.IsTerminal(os.Stdout.Fd())

	level := &slog.LevelVar{}
	level.Set(slog.LevelWarn)

	return &App{
		OutWriter:    os.Stdout,
		ErrWriter:    os.Stderr,
		InReader:     os.Stdin,
		ColorableOut: colorable.NewColorableStdout(),
		Prettyfmt:    prettyfmt,
		Null:         "NULL",
		LogLevel:     level,
		Logger:       NewLogger(os.Stderr, level),
	}
}

// InitConfig reads the config file, resolves the active cluster and sets up
// logging. Called by PersistentPreRunE on the root command.
func (a *App) InitConfig() error {
	var err error
	a.Cfg, err = config.ReadConfig(a.CfgFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if a.Verbose {
		a.LogLevel.Set(slog.LevelDebug)
	} else {
		a.LogLevel.Set(a.Cfg.Level())
	}
	a.Logger = NewLogger(a.ErrWriter, a.LogLevel)
	slog.SetDefault(a.Logger)

	a.Cfg.ClusterOverride = a.ClusterOverride

	cluster := a.Cfg.ActiveCluster()
	if cluster != nil {
		a.CurrentCluster = cluster
	} else {
		a.CurrentCluster = &config.Cluster{
			Brokers: []string{"localhost:9092"},
		}
	}

	if a.BrokersFlag != nil {
		a.CurrentCluster.Brokers = a.BrokersFlag
	}

	a.Logger.Debug("config loaded", "path", a.Cfg.Path(), "strict", a.Strict(), "brokers", a.CurrentCluster.Brokers)
	return nil
}

// Strict reports whether tables must be validated before encoding. The
// --no-strict flag overrides the config.
func (a *App) Strict() bool {
	return !a.NoStrict && a.Cfg.StrictMode()
}

// Codec returns the named codec configured with the current strictness.
func (a *App) Codec(name string) (codec.Codec, error) {
	return codec.New(name, codec.Options{Strict: a.Strict()})
}

// Default sets flag name on cmd to value unless the user passed it
// explicitly. It lets config values act as flag defaults.
func (a *App) Default(cmd *cobra.Command, name, value string) error {
	f := cmd.Flags().Lookup(name)
	if f == nil || f.Changed || value == "" {
		return nil
	}
	if err := f.Value.Set(value); err != nil {
		return fmt.Errorf("config value for --%s: %w", name, err)
	}
	return nil
}

// NewClient creates a franz-go based client from the current cluster config.
func (a *App) NewClient(opts ...kgo.Opt) (*rsvclient.Client, error) {
	cl, err := rsvclient.New(a.CurrentCluster, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create client: %w", err)
	}
	return cl, nil
}

// AddNoHeadersFlag installs --no-headers on cmd.
func (a *App) AddNoHeadersFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&a.NoHeaderFlag, "no-headers", false, "Hide record metadata")
}

// ValidTopicArgs provides shell completion for topic names.
func (a *App) ValidTopicArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveDefault
	}
	cl, err := a.NewClient()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer cl.Close()

	topics, err := topic.List(cmd.Context(), cl.Admin)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	names := make([]string, 0, len(topics))
	for _, t := range topics {
		names = append(names, t.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// ValidConfigArgs provides shell completion for cluster names.
func (a *App) ValidConfigArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	clusterList := make([]string, 0, len(a.Cfg.Clusters))
	for _, cluster := range a.Cfg.Clusters {
		clusterList = append(clusterList, cluster.Name)
	}
	return clusterList, cobra.ShellCompDirectiveNoFileComp
}

// CompleteCodec provides shell completion for codec name flags.
func CompleteCodec(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return codec.Names(), cobra.ShellCompDirectiveNoFileComp
}

const (
	TabwriterMinWidth = 6
	TabwriterWidth    = 4
	TabwriterPadding  = 3
	TabwriterPadChar  = ' '
	TabwriterFlags    = 0
)

// NewTabWriter creates a standard tabwriter for CLI output.
func NewTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, TabwriterMinWidth, TabwriterWidth, TabwriterPadding, TabwriterPadChar, TabwriterFlags)
}
