package encode

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/birdayz/rsv/pkg/app"
	"github.com/birdayz/rsv/pkg/compress"
)

// NewCommand returns the "rsv encode" command.
func NewCommand(a *app.App) *cobra.Command {
	var (
		outputFlag   string
		fromFlag     string
		compressFlag compress.Algorithm
	)

	cmd := &cobra.Command{
		Use:   "encode [INPUT]",
		Short: "Encode a table into RSV",
		Long:  "Read a table (a JSON array of arrays of string or null by default) and write it as RSV. Reads stdin and writes stdout when no paths are given.",
		Example: `  echo '[["id","name"],["1",null]]' | rsv encode > table.rsv
  rsv encode table.json -o table.rsv.zst
  rsv encode table.msgpack --from msgpack -o table.rsv --compress lz4`,
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
			data, err := a.ReadInput(input)
			if err != nil {
				return err
			}
			t, err := from.DecodeTable(data)
			if err != nil {
				return fmt.Errorf("decode %s input: %w", fromFlag, err)
			}

			algo := a.OutputCompression(compressFlag, cmd.Flags().Changed("compress"), outputFlag)
			a.Logger.Debug("encoding table", "rows", len(t), "cells", t.Cells(), "compression", algo, "strict", a.Strict())
			return a.WriteTable(outputFlag, t, algo)
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output-file", "o", "", "Write RSV to this file instead of stdout")
	cmd.Flags().StringVar(&fromFlag, "from", "json", "Input format")
	cmd.Flags().Var(&compressFlag, "compress", "Compression: none, zstd, lz4 (default from file extension or config)")

	if err := cmd.RegisterFlagCompletionFunc("from", app.CompleteCodec); err != nil {
		panic(fmt.Sprintf("Failed to register flag completion: %v", err))
	}
	return cmd
}
