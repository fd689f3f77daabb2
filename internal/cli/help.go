package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Root help groups.
const (
	groupAccounts = "accounts"
	groupFunds    = "funds"
	groupSecurity = "security"
	groupTools    = "tools"
)

func commandGroups() []*cobra.Group {
	return []*cobra.Group{
		{ID: groupAccounts, Title: "Accounts & Addresses:"},
		{ID: groupFunds, Title: "Balances & Transfers:"},
		{ID: groupSecurity, Title: "Unlock & Backup:"},
		{ID: groupTools, Title: "Tools:"},
	}
}

// helpCmd replaces cobra's default so it carries an example and skips
// config loading like completion does.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var helpCmd = &cobra.Command{
	Use:   "help [command]",
	Short: "Help about any command",
	Long: `Show the full help of any nope command, including the flags it
requires and the accounts it works on.`,
	Example:           `  nope help wallet create`,
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(c *cobra.Command, args []string) error {
		target, _, err := c.Root().Find(args)
		if target == nil || err != nil {
			return fmt.Errorf("unknown help topic %q", args)
		}
		target.InitDefaultHelpFlag()
		return target.Help()
	},
}

// walkCommands visits every command in the tree depth-first.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// enrichParentLong lists the visible subcommands of a parent such as
// wallet or biometric under its Long text, with the flags each requires.
func enrichParentLong(cmd *cobra.Command) {
	if !cmd.HasSubCommands() {
		return
	}

	var sb strings.Builder
	sb.WriteString(cmd.Long)
	sb.WriteString("\n\nSubcommands:\n")
	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() {
			continue
		}
		line := fmt.Sprintf("  %-10s %s", sub.Name(), sub.Short)
		if req := requiredFlags(sub); len(req) > 0 {
			line += " (needs " + strings.Join(req, ", ") + ")"
		}
		sb.WriteString(line + "\n")
	}
	cmd.Long = sb.String()
}

// requiredFlags returns the --flags cobra enforces on cmd, including ones
// a parent declares persistent, sorted.
func requiredFlags(cmd *cobra.Command) []string {
	seen := make(map[string]bool)
	collect := func(f *pflag.Flag) {
		if _, ok := f.Annotations[cobra.BashCompOneRequiredFlag]; ok {
			seen["--"+f.Name] = true
		}
	}
	cmd.Flags().VisitAll(collect)
	cmd.InheritedFlags().VisitAll(collect)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
