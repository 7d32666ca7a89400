package decode

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/birdayz/rsv/pkg/app"
	"github.com/birdayz/rsv/pkg/compress"
)

// NewCommand returns the "rsv decode" command.
func NewCommand(a *app.App) *cobra.Command {
	var (
		outputFileFlag string
		toFlag         string
		compressFlag   compress.Algorithm
		outputFormat   = app.OutputFormatJSON
	)

	cmd := &cobra.Command{
		Use:   "decode [INPUT]",
		Short: "Decode an RSV table",
		Long:  "Read an RSV table and print it, or convert it to another format with --to. Reads stdin when no path is given.",
		Example: `  rsv decode table.rsv
  rsv decode table.rsv.zst --output table
  cat table.rsv | rsv decode --output pretty
  rsv decode table.rsv --to cbor -o table.cbor
  rsv decode table.rsv.lz4 --to rsv -o table.rsv.zst`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) > 0 {
				input = args[0]
			}

			var algo compress.Algorithm
			if cmd.Flags().Changed("compress") {
				algo = compressFlag
			}
			t, err := a.ReadTable(input, algo)
			if err != nil {
				return err
			}
			a.Logger.Debug("decoded table", "rows", len(t), "cells", t.Cells())

			if toFlag == "" && app.IsStdio(outputFileFlag) {
				return a.PrintTable(t, outputFormat)
			}
			if toFlag == "" {
				toFlag = "json"
			}
			to, err := a.Codec(toFlag)
			if err != nil {
				return err
			}
			out, err := to.EncodeTable(t)
			if err != nil {
				return fmt.Errorf("encode %s: %w", toFlag, err)
			}
			if !app.IsStdio(outputFileFlag) {
				// Files follow their extension; RSV output also falls back
				// to the configured compression, as encode does.
				outAlgo := compress.FromPath(outputFileFlag)
				if to.Name() == "rsv" {
					outAlgo = a.OutputCompression(compress.None, false, outputFileFlag)
				}
				if out, err = compress.Compress(out, outAlgo); err != nil {
					return err
				}
				a.Logger.Debug("writing output", "path", outputFileFlag, "format", to.Name(), "compression", outAlgo)
			}
			return a.WriteOutput(outputFileFlag, out)
		},
	}

	cmd.Flags().StringVarP(&outputFileFlag, "output-file", "o", "", "Write the result to this file instead of stdout, compressed by its extension")
	cmd.Flags().StringVar(&toFlag, "to", "", "Convert to this format instead of printing")
	cmd.Flags().Var(&compressFlag, "compress", "Input compression: none, zstd, lz4 (default from file extension)")
	cmd.Flags().Var(&outputFormat, "output", "Print format: json, pretty, table, hex, raw")

	if err := cmd.RegisterFlagCompletionFunc("to", app.CompleteCodec); err != nil {
		panic(fmt.Sprintf("Failed to register flag completion: %v", err))
	}
	if err := cmd.RegisterFlagCompletionFunc("output", app.CompleteOutputFormat); err != nil {
		panic(fmt.Sprintf("Failed to register flag completion: %v", err))
	}
	return cmd
}
