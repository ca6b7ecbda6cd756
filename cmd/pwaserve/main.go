// pwaserve - Serve a built web app to phones on the local network
//
// Serves the compiled bundle with development or hardened response
// headers and prints the LAN URL to open on the phone.
package main

import (
	"os"

	_ "github.com/joeblew999/pwaserve/internal/bootstrap"

	"github.com/joeblew999/pwaserve/cmd/pwaserve/cmd"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cmd.SetVersion(Version)

	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
