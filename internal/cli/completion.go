package cli

import (
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/nopewallet/internal/chain"
)

// completionWriters generate the script for each supported shell.
//
//nolint:gochecknoglobals // fixed lookup table
var completionWriters = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

func completionShells() []string {
	shells := make([]string, 0, len(completionWriters))
	for name := range completionWriters {
		shells = append(shells, name)
	}
	sort.Strings(shells)
	return shells
}

// completeChains offers chain names for --chain. Text before the last comma
// is kept so comma-separated lists complete one entry at a time.
func completeChains(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	head := ""
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		head = toComplete[:i+1]
	}
	ids := chain.All()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, head+id.String())
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Generate shell completion script",
	Long: `Print a completion script for bash, zsh, fish or powershell.

Completion covers commands, flags and the values of --chain. It needs no
config and never unlocks an account, so it is safe to source at shell start.

  bash        source <(nope completion bash)
  zsh         nope completion zsh > "${fpath[1]}/_nope"
  fish        nope completion fish > ~/.config/fish/completions/nope.fish
  powershell  nope completion powershell | Out-String | Invoke-Expression`,
	Example: `  nope completion bash
  nope completion zsh > "${fpath[1]}/_nope"`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells(),
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	PersistentPreRunE:     func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return completionWriters[args[0]](cmd.Root(), cmd.OutOrStdout())
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(completionCmd)
	completionCmd.GroupID = groupTools
}
