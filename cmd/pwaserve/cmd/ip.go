package cmd

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/joeblew999/pwaserve/internal/headers"
	"github.com/joeblew999/pwaserve/internal/lanip"
)

var ipPort int

// IPCmd prints the LAN address a phone should use.
var IPCmd = &cobra.Command{
	Use:   "ip",
	Short: "Print this machine's LAN IP and the URL to open on a phone",
	Long: `Print the address this machine uses on the local network.

The address is found by asking the OS which interface would route to
8.8.8.8; no packet is sent. Without a network the loopback address
127.0.0.1 is printed instead and the command still succeeds.

Examples:
  pwaserve ip             # URL for port 8000
  pwaserve ip --port 8080 # URL for the hardened profile`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res := lanip.Resolve(cmd.Context())
		addr := res.Addr
		if !res.OK() {
			log.Debug().Err(res.Err).Msg("no LAN route, using loopback")
			addr = lanip.Loopback
		}
		printIP(cmd.OutOrStdout(), addr, ipPort)
		return nil
	},
}

func init() {
	IPCmd.Flags().IntVarP(&ipPort, "port", "p", headers.Dev.DefaultPort, "Port used in the printed URL")
}

func printIP(w io.Writer, addr string, port int) {
	fmt.Fprintf(w, "🌐 Local IP: %s\n", addr)
	fmt.Fprintf(w, "📱 Phone URL: %s\n", lanip.URL(addr, port))
}
