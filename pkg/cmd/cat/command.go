package cat

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/birdayz/rsv/pkg/app"
)

// NewCommand returns the "rsv cat" command.
func NewCommand(a *app.App) *cobra.Command {
	outputFormat := app.OutputFormatTable

	cmd := &cobra.Command{
		Use:   "cat FILE...",
		Short: "Print RSV files",
		Long:  "Print one or more RSV files. Compressed files are detected by extension. Null cells print as the --null placeholder in table output.",
		Example: `  rsv cat table.rsv
  rsv cat a.rsv b.rsv.zst --output json
  rsv cat table.rsv --null '<null>'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				t, err := a.ReadTable(path, "")
				if err != nil {
					return err
				}
				if len(args) > 1 && !a.NoHeaderFlag {
					fmt.Fprintf(a.ErrWriter, "==> %s <==\n", path)
				}
				if err := a.PrintTable(t, outputFormat); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().Var(&outputFormat, "output", "Print format: json, pretty, table, hex, raw")
	a.AddNoHeadersFlag(cmd)

	if err := cmd.RegisterFlagCompletionFunc("output", app.CompleteOutputFormat); err != nil {
		panic(fmt.Sprintf("Failed to register flag completion: %v", err))
	}
	return cmd
}
