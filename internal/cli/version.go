package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/nopewallet/internal/version"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	versionCheck bool
	// releaseURL is replaced in tests.
	releaseURL = version.DefaultReleaseURL
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Show the build's version, commit and date.

With --check, also ask GitHub whether a newer release is published.`,
	Example: `  nope version
  nope version --check -o json`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.GroupID = groupTools
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check for a newer release")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	cmdCtx := GetCmdContext(cmd)
	info := version.Current()

	payload := struct {
		version.Info
		Latest          string `json:"latest,omitempty"`
		UpdateAvailable bool   `json:"update_available,omitempty"`
	}{Info: info}

	if versionCheck {
		latest, err := version.NewReleaseClient(releaseURL, cmdCtx.httpClient()).Latest(cmd.Context())
		if err != nil {
			return err
		}
		payload.Latest = latest
		payload.UpdateAvailable = version.IsNewer(info.Version, latest)
	}

	w := cmd.OutOrStdout()
	if cmdCtx.Fmt.IsJSON() {
		return writeJSON(w, payload)
	}
	outln(w, info.String())
	if versionCheck {
		if payload.UpdateAvailable {
			out(w, "A newer release is available: %s\n", payload.Latest)
		} else {
			out(w, "Up to date (latest release: %s)\n", payload.Latest)
		}
	}
	return nil
}
