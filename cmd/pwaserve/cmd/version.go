package cmd

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	version        = "dev"
	versionVerbose bool
)

// SetVersion sets the version string (called from main)
func SetVersion(v string) {
	version = v
}

// VersionCmd prints the version
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print pwaserve version",
	Long: `Print the pwaserve version.

Release builds carry the version set at link time. A binary built with
'go install' reports its module version instead.

Examples:
  pwaserve version
  pwaserve version --verbose   # also Go version, platform and commit`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		if !versionVerbose {
			fmt.Fprintln(w, resolvedVersion())
			return
		}
		printBuildInfo(w)
	},
}

func init() {
	VersionCmd.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "Show Go version, platform and commit")
}

// resolvedVersion prefers the link-time version, then the module version.
func resolvedVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

func printBuildInfo(w io.Writer) {
	fmt.Fprintf(w, "pwaserve %s\n", resolvedVersion())
	fmt.Fprintf(w, "  go:       %s\n", runtime.Version())
	fmt.Fprintf(w, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	var revision, modified string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				modified = " (modified)"
			}
		}
	}
	if revision != "" {
		fmt.Fprintf(w, "  commit:   %s%s\n", revision, modified)
	}
}
