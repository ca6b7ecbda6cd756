package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joeblew999/pwaserve/internal/assets"
	"github.com/joeblew999/pwaserve/internal/config"
)

var checkDir string

// CheckCmd reports whether the built bundle can be installed as a PWA.
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the built bundle has what a PWA install needs",
	Long: `Inspect the asset root for the files a browser needs before it offers
"Add to Home Screen": index.html, a web manifest and a service worker.
Icons are listed but not required.

Exits non-zero when something essential is missing.

Examples:
  pwaserve check
  pwaserve check --dir dist`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := assets.Inspect(checkDir)
		if err != nil {
			printMissingRoot(cmd.ErrOrStderr(), checkDir)
			return err
		}
		printReport(cmd.OutOrStdout(), report)
		if !report.Installable() {
			return fmt.Errorf("%s is missing: %s", checkDir, strings.Join(report.Missing(), ", "))
		}
		return nil
	},
}

func init() {
	CheckCmd.Flags().StringVar(&checkDir, "dir", config.DefaultRoot, "Asset root directory")
}

func printReport(w io.Writer, r assets.Report) {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	fmt.Fprintf(w, "📂 %s: %d files, %d bytes\n", r.Root, r.Files, r.Bytes)
	for _, part := range []struct {
		label string
		found []string
	}{
		{"index.html", r.Index},
		{"web manifest", r.Manifest},
		{"service worker", r.ServiceWorkers},
	} {
		if len(part.found) == 0 {
			bad.Fprintf(w, "  ✗ %s\n", part.label)
			continue
		}
		ok.Fprintf(w, "  ✓ %s", part.label)
		fmt.Fprintf(w, " (%s)\n", strings.Join(part.found, ", "))
	}
	fmt.Fprintf(w, "  icons: %d\n", len(r.Icons))
}
