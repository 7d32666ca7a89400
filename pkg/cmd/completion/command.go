package completion

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/birdayz/rsv/pkg/app"
)

var generators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash": func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":  func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish": func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletionWithDesc(w)
	},
}

// NewCommand returns the "rsv completion" command.
// It takes the root command so it can generate completions for the full tree.
func NewCommand(root *cobra.Command, a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [SHELL]",
		Short: "Generate completion script for bash, zsh, fish or powershell",
		Long: `To load completions:

Bash:

$ source <(rsv completion bash)

Zsh:

$ rsv completion zsh > "${fpath[1]}/_rsv"

Fish:

$ rsv completion fish > ~/.config/fish/completions/rsv.fish
`,
		DisableFlagsInUseLine: true,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := generators[args[0]](root, a.OutWriter); err != nil {
				return fmt.Errorf("failed to generate %s completion: %w", args[0], err)
			}
			return nil
		},
	}
}
