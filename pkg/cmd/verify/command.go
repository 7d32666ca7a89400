package verify

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/birdayz/rsv/pkg/app"
	"github.com/birdayz/rsv/pkg/rsvfile"
)

var errVerifyFailed = errors.New("verification failed")

// NewCommand returns the "rsv verify" command.
func NewCommand(a *app.App) *cobra.Command {
	var allowNonCanonical bool

	cmd := &cobra.Command{
		Use:   "verify FILE...",
		Short: "Check that RSV files decode and re-encode byte for byte",
		Long: `Decode each file and encode the result again. A file passes when it decodes
and the encoding is identical to its content. Files with bytes after the last
row terminator, or with values that are not terminated before their row
ends, decode but are reported as not canonical.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := app.NewTabWriter(a.OutWriter)
			if !a.NoHeaderFlag {
				fmt.Fprintf(w, "FILE\tROWS\tCELLS\tSTATUS\t\n")
			}

			failed := 0
			for _, path := range args {
				t, canonical, err := rsvfile.Verify(path)
				switch {
				case err != nil:
					failed++
					fmt.Fprintf(w, "%v\t-\t-\t%v\t\n", path, err)
				case !canonical:
					if !allowNonCanonical {
						failed++
					}
					fmt.Fprintf(w, "%v\t%v\t%v\tnot canonical\t\n", path, len(t), t.Cells())
				default:
					fmt.Fprintf(w, "%v\t%v\t%v\tok\t\n", path, len(t), t.Cells())
				}
			}
			w.Flush()

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d files", errVerifyFailed, failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowNonCanonical, "allow-non-canonical", false, "Only fail on files that do not decode")
	a.AddNoHeadersFlag(cmd)
	return cmd
}
