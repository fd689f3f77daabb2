package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/nopewallet/internal/backup"
	"github.com/mrz1836/nopewallet/internal/fileutil"
	"github.com/mrz1836/nopewallet/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	backupFile   string
	backupMode   string
	backupDryRun bool
)

// backupCmd groups the backup commands.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export and import the wallet store",
	Long: `Export the whole wallet store to a file, or import one.

A backup holds the encrypted mnemonics as stored: it is useless without the
master password, but keep it private anyway.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the store to a file",
	Long: `Write every entry of the wallet store to a JSON file with owner-only
permissions. Nothing is decrypted.`,
	Example: `  nope backup export --file ~/nope-backup.json`,
	Args:    cobra.NoArgs,
	RunE:    runBackupExport,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a backup into the store",
	Long: `Load a backup file into the wallet store.

In merge mode entries from the backup are added, the account lists are
combined and stored mnemonics are never overwritten. In replace mode the store ends up holding exactly the backup. Use
--dry-run to see what a backup holds without writing anything.`,
	Example: `  nope backup import --file ~/nope-backup.json --dry-run
  nope backup import --file ~/nope-backup.json --mode replace`,
	Args: cobra.NoArgs,
	RunE: runBackupImport,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.GroupID = groupSecurity
	backupCmd.AddCommand(backupExportCmd, backupImportCmd)

	backupCmd.PersistentFlags().StringVarP(&backupFile, "file", "f", "", "backup file path (required)")
	_ = backupCmd.MarkPersistentFlagRequired("file")

	backupImportCmd.Flags().StringVar(&backupMode, "mode", backup.Merge.String(), "import mode: merge, replace")
	backupImportCmd.Flags().BoolVar(&backupDryRun, "dry-run", false, "summarize the backup without writing")

	enrichParentLong(backupCmd)
}

func runBackupExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cmdCtx := GetCmdContext(cmd)

	kv, closeFn, err := openStoreFn(ctx, cmdCtx.Cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	data, err := backup.Export(ctx, kv)
	if err != nil {
		return err
	}
	path, err := fileutil.ExpandHome(backupFile)
	if err != nil {
		return err
	}
	if err := backup.WriteFile(path, data); err != nil {
		return err
	}

	entries, err := backup.Parse(data)
	if err != nil {
		return err
	}
	summary := backup.Summarize(entries)

	w := cmd.OutOrStdout()
	if cmdCtx.Fmt.IsJSON() {
		return writeJSON(w, summary)
	}
	output.Success(w, "Exported %s to %s", summary.Describe(), path)
	out(w, "Checksum: %s\n", summary.Checksum)
	return nil
}

func runBackupImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cmdCtx := GetCmdContext(cmd)

	mode, err := backup.ParseMode(backupMode)
	if err != nil {
		return err
	}
	path, err := fileutil.ExpandHome(backupFile)
	if err != nil {
		return err
	}
	data, err := backup.ReadFile(path)
	if err != nil {
		return err
	}

	kv, closeFn, err := openStoreFn(ctx, cmdCtx.Cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	summary, err := backup.Import(ctx, kv, data, backup.ImportOptions{Mode: mode, DryRun: backupDryRun})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cmdCtx.Fmt.IsJSON() {
		return writeJSON(w, summary)
	}
	if backupDryRun {
		out(w, "Backup holds %s (not imported)\n", summary.Describe())
	} else {
		output.Success(w, "Imported %s in %s mode", summary.Describe(), mode)
		if summary.Removed > 0 {
			out(w, "Removed %d keys not in the backup\n", summary.Removed)
		}
		if summary.Kept > 0 {
			out(w, "Kept %d local mnemonics that differ from the backup\n", summary.Kept)
		}
	}
	out(w, "Checksum: %s\n", summary.Checksum)
	return nil
}
