package digest

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/birdayz/rsv/pkg/app"
	"github.com/birdayz/rsv/pkg/compress"
	"github.com/birdayz/rsv/pkg/digest"
)

// NewCommand returns the "rsv digest" command.
func NewCommand(a *app.App) *cobra.Command {
	var checkFlag string

	cmd := &cobra.Command{
		Use:   "digest [FILE...]",
		Short: "Print the BLAKE3 digest of RSV streams",
		Long:  "Print the BLAKE3 digest of each file's uncompressed RSV bytes, the same value carried in the " + digest.Header + " record header. Reads stdin when no file is given.",
		Example: `  rsv digest table.rsv table.rsv.zst
  rsv digest table.rsv --check 3f4c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"-"}
			}
			if checkFlag != "" && len(args) != 1 {
				return fmt.Errorf("--check needs exactly one input")
			}

			for _, path := range args {
				sum, n, err := sumFile(a, path)
				if err != nil {
					return err
				}
				a.Logger.Debug("hashed", "path", path, "bytes", n)
				if checkFlag != "" {
					if sum != checkFlag {
						return fmt.Errorf("%s: %w", path, digest.ErrDigestMismatch)
					}
					fmt.Fprintf(a.OutWriter, "%s: OK\n", path)
					continue
				}
				fmt.Fprintf(a.OutWriter, "%s  %s\n", sum, path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&checkFlag, "check", "", "Expected hex digest; fail when it does not match")
	return cmd
}

func sumFile(a *app.App, path string) (string, int64, error) {
	var r io.Reader = a.InReader
	if !app.IsStdio(path) {
		f, err := os.Open(path)
		if err != nil {
			return "", 0, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	cr, err := compress.NewReader(r, compress.FromPath(path))
	if err != nil {
		return "", 0, err
	}
	defer cr.Close()

	sum, n, err := digest.Reader(cr)
	if err != nil {
		return "", 0, fmt.Errorf("read %s: %w", path, err)
	}
	return sum, n, nil
}
