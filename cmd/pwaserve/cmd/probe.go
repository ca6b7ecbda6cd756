package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joeblew999/pwaserve/internal/config"
	"github.com/joeblew999/pwaserve/internal/headers"
	"github.com/joeblew999/pwaserve/internal/probe"
)

var (
	probeProfile string
	probeOptions = probe.DefaultOptions()
)

// ProbeCmd checks a running server against a header profile.
var ProbeCmd = &cobra.Command{
	Use:   "probe <url>",
	Short: "Check that a running server sends a header profile",
	Long: `Fetch a URL and compare the response headers with a profile.

Every profile header must be present exactly once with the expected
value. Connection errors and 5xx responses are retried briefly so the
command can run right after starting a server.

Examples:
  pwaserve probe http://localhost:8000/
  pwaserve probe http://192.168.1.20:8080/ --profile hardened`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := headers.Lookup(probeProfile)
		if err != nil {
			return err
		}
		res, err := probe.Check(cmd.Context(), args[0], p, probeOptions)
		if err != nil {
			return err
		}
		printProbe(cmd.OutOrStdout(), p, res)
		if !res.OK() {
			return fmt.Errorf("%s does not match the %s profile", res.URL, p.Name)
		}
		return nil
	},
}

func init() {
	ProbeCmd.Flags().StringVar(&probeProfile, "profile", config.DefaultProfile, "Header profile to expect: dev or hardened")
	ProbeCmd.Flags().DurationVar(&probeOptions.Timeout, "timeout", probeOptions.Timeout, "Per-request timeout")
	ProbeCmd.Flags().IntVar(&probeOptions.RetryMax, "retries", probeOptions.RetryMax, "Retries on connection errors and 5xx")
}

func printProbe(w io.Writer, p headers.Profile, res probe.Result) {
	fmt.Fprintf(w, "%s → %d\n", res.URL, res.Status)
	if res.OK() {
		color.New(color.FgGreen).Fprintf(w, "✓ all %d %s headers present\n", len(p.Headers), p.Name)
		return
	}
	bad := color.New(color.FgRed)
	for _, h := range res.Missing {
		bad.Fprintf(w, "  ✗ missing %s\n", h)
	}
	for _, d := range res.Mismatched {
		bad.Fprintf(w, "  ✗ %s: want %q, got %q\n", d.Name, d.Want, d.Got)
	}
}
