package convert

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/birdayz/rsv/pkg/app"
	"github.com/birdayz/rsv/pkg/codec"
)

// NewCommand returns the "rsv convert" command.
func NewCommand(a *app.App) *cobra.Command {
	var (
		outputFlag string
		fromFlag   string
		toFlag     string
	)

	cmd := &cobra.Command{
		Use:   "convert [INPUT]",
		Short: "Convert a table between formats",
		Long:  "Convert a table from one registered format to another. The formats are: " + fmt.Sprint(codec.Names()) + ".",
		Example: `  rsv convert table.rsv --from rsv --to msgpack -o table.msgpack
  cat table.cbor | rsv convert --from cbor --to avro > table.avro`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) > 0 {
				input = args[0]
			}

			from, err := a.Codec(fromFlag)
			if err != nil {
				return err
			}
			to, err := a.Codec(toFlag)
			if err != nil {
				return err
			}
			data, err := a.ReadInput(input)
			if err != nil {
				return err
			}
			out, err := codec.Convert(from, to, data)
			if err != nil {
				return err
			}
			a.Logger.Debug("converted table", "from", fromFlag, "to", toFlag, "in", len(data), "out", len(out))
			return a.WriteOutput(outputFlag, out)
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output-file", "o", "", "Write the result to this file instead of stdout")
	cmd.Flags().StringVar(&fromFlag, "from", "json", "Input format")
	cmd.Flags().StringVar(&toFlag, "to", "rsv", "Output format")

	for _, name := range []string{"from", "to"} {
		if err := cmd.RegisterFlagCompletionFunc(name, app.CompleteCodec); err != nil {
			panic(fmt.Sprintf("Failed to register flag completion: %v", err))
		}
	}
	return cmd
}
