package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd returns the pwaserve command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pwaserve",
		Short: "Serve a built web app to phones on the local network",
		Long: `pwaserve serves a compiled web bundle (flutter build web) on the
local network so it can be opened and installed as a PWA on a phone.

Start with 'pwaserve serve', then open the printed Network URL on a
phone connected to the same Wi-Fi.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(VersionCmd)

	// Serving
	rootCmd.AddCommand(ServeCmd)
	rootCmd.AddCommand(IPCmd)
	rootCmd.AddCommand(ServiceCmd)

	// Diagnostics
	rootCmd.AddCommand(CheckCmd)
	rootCmd.AddCommand(ProbeCmd)
	rootCmd.AddCommand(ProfilesCmd)

	// Settings
	rootCmd.AddCommand(ConfigCmd)

	return rootCmd
}
