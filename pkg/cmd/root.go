package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/birdayz/rsv/pkg/app"
	"github.com/birdayz/rsv/pkg/cmd/cat"
	"github.com/birdayz/rsv/pkg/cmd/completion"
	rsvconfig "github.com/birdayz/rsv/pkg/cmd/config"
	"github.com/birdayz/rsv/pkg/cmd/consume"
	"github.com/birdayz/rsv/pkg/cmd/convert"
	"github.com/birdayz/rsv/pkg/cmd/decode"
	"github.com/birdayz/rsv/pkg/cmd/digest"
	"github.com/birdayz/rsv/pkg/cmd/encode"
	"github.com/birdayz/rsv/pkg/cmd/produce"
	"github.com/birdayz/rsv/pkg/cmd/topic"
	"github.com/birdayz/rsv/pkg/cmd/verify"
)

// Execute is the single entry point for the CLI.
func Execute(version, commit string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand(app.New(), version, commit).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree around a.
func NewRootCommand(a *app.App, version, commit string) *cobra.Command {
	root := &cobra.Command{
		Use:          "rsv",
		Short:        "Encode, decode and stream RSV (Rows of String Values) tables",
		Version:      fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.OutWriter = cmd.OutOrStdout()
			a.ErrWriter = cmd.ErrOrStderr()
			a.InReader = cmd.InOrStdin()

			if a.OutWriter != os.Stdout {
				a.ColorableOut = a.OutWriter
				a.Prettyfmt.DisabledColor = true
			}

			if err := a.InitConfig(); err != nil {
				return err
			}
			if err := a.Default(cmd, "null", a.Cfg.NullString()); err != nil {
				return err
			}
			return a.Default(cmd, "output", a.Cfg.Format)
		},
	}

	root.PersistentFlags().StringVar(&a.CfgFile, "config", "", "config file (default is $HOME/.rsv/config)")
	root.PersistentFlags().StringSliceVarP(&a.BrokersFlag, "brokers", "b", nil, "Comma separated list of broker ip:port pairs")
	root.PersistentFlags().StringVarP(&a.ClusterOverride, "cluster", "c", "", "set a temporary current cluster")
	root.PersistentFlags().BoolVarP(&a.Verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&a.NoStrict, "no-strict", false, "Allow text values containing reserved bytes, producing output that does not decode back to the same table")
	root.PersistentFlags().StringVar(&a.Null, "null", "NULL", "Placeholder printed for null cells in table output")

	root.AddCommand(
		encode.NewCommand(a),
		decode.NewCommand(a),
		convert.NewCommand(a),
		cat.NewCommand(a),
		verify.NewCommand(a),
		digest.NewCommand(a),
		produce.NewCommand(a),
		consume.NewCommand(a),
		topic.NewCommand(a),
		topic.NewTopicsAlias(a),
		rsvconfig.NewCommand(a),
		completion.NewCommand(root, a),
	)

	if err := root.RegisterFlagCompletionFunc("cluster", a.ValidConfigArgs); err != nil {
		panic(fmt.Sprintf("Failed to register flag completion: %v", err))
	}

	a.Root = root
	return root
}
