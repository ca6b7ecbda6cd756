package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joeblew999/pwaserve/internal/headers"
)

// ProfilesCmd lists the header profiles.
var ProfilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List header profiles and the headers they send",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		bold := color.New(color.Bold)
		for i, p := range headers.Profiles() {
			if i > 0 {
				fmt.Fprintln(w)
			}
			bold.Fprintf(w, "%s", p.Name)
			fmt.Fprintf(w, " (port %d): %s\n", p.DefaultPort, p.Description)
			for _, h := range p.Headers {
				fmt.Fprintf(w, "  %s\n", h)
			}
		}
	},
}
