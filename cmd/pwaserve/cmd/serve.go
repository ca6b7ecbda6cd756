package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/joeblew999/pwaserve/internal/assets"
	"github.com/joeblew999/pwaserve/internal/bootstrap"
	"github.com/joeblew999/pwaserve/internal/config"
	"github.com/joeblew999/pwaserve/internal/headers"
	"github.com/joeblew999/pwaserve/internal/lanip"
	"github.com/joeblew999/pwaserve/internal/server"
	"github.com/joeblew999/pwaserve/internal/watch"
)

var serveFlags serverFlags

// ServeCmd serves the built web app to phones on the local network.
var ServeCmd = &cobra.Command{
	Use:   "serve [port]",
	Short: "Serve the built web app on the local network",
	Long: `Serve the compiled web bundle so a phone on the same Wi-Fi can open it
and install it as a PWA.

The dev profile (port 8000) disables caching and allows any origin.
The hardened profile (port 8080) adds the security headers a
production deployment would send. Extra headers can be added with
--header and replace profile headers of the same name.

Run '` + config.BuildCommand + `' first; the server refuses to start
when the asset root does not exist.

Examples:
  pwaserve serve                       # dev profile on port 8000
  pwaserve serve 9000                  # dev profile on port 9000
  pwaserve serve --profile hardened    # hardened profile on port 8080
  pwaserve serve --dir dist --watch    # serve ./dist, log rebuilds
  pwaserve serve -H X-Build=42         # add a response header`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveFlags.register(ServeCmd.Flags())
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := serveFlags.resolve(cmd.Flags(), args)
	if err != nil {
		return err
	}

	log := bootstrap.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	srv, err := server.New(cfg, log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := srv.CheckRoot(); err != nil {
		if errors.Is(err, server.ErrRootMissing) {
			printMissingRoot(cmd.ErrOrStderr(), cfg.Root)
		}
		return err
	}

	if report, err := assets.Inspect(cfg.Root); err == nil {
		for _, part := range report.Missing() {
			log.Warn().Str("missing", part).Msg("bundle is not installable as a PWA")
		}
	}

	if cfg.Watch {
		w, err := startWatcher(cfg.Root, log)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := srv.Listen()
	if err != nil {
		return err
	}

	printServeBanner(out, cfg, srv.Profile(), lanip.ResolveOrLoopback(ctx))

	if err := srv.Serve(ctx, ln); err != nil {
		return err
	}

	color.New(color.FgYellow).Fprintln(out, "\n🛑 Server stopped")
	return nil
}

func startWatcher(root string, log zerolog.Logger) (*watch.Watcher, error) {
	w, err := watch.New(root, watch.DefaultQuiet, func(paths []string) {
		log.Info().Int("files", len(paths)).Msg("assets changed, reload the page on the phone")
	})
	if err != nil {
		return nil, err
	}
	w.OnError(func(err error) {
		log.Warn().Err(err).Msg("watch error")
	})
	if err := w.Start(); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func printMissingRoot(w io.Writer, root string) {
	color.New(color.FgRed).Fprintf(w, "❌ %s directory not found!\n", root)
	fmt.Fprintf(w, "   Run '%s' first\n", config.BuildCommand)
}

// lanHost picks the host a phone should use for the configured bind address.
func lanHost(bind, lan string) string {
	switch bind {
	case "", "0.0.0.0", "::":
		return lan
	case "localhost":
		return "127.0.0.1"
	default:
		return bind
	}
}

func printServeBanner(w io.Writer, cfg config.Config, p headers.Profile, lan string) {
	port := cfg.ListenPort()
	network := lanip.URL(lanHost(cfg.Bind, lan), port)

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)

	bold.Fprintf(w, "🚀 PWA server running (%s profile)\n", p.Name)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "💻 Local:   %s\n", cyan.Sprint("http://localhost:"+strconv.Itoa(port)))
	fmt.Fprintf(w, "📱 Network: %s\n", cyan.Sprint(network))
	fmt.Fprintf(w, "📂 Root:    %s\n", cfg.Root)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "📋 On your phone:")
	fmt.Fprintln(w, "   1. Connect to the same Wi-Fi network")
	fmt.Fprintf(w, "   2. Open %s in Chrome or Safari\n", network)
	fmt.Fprintln(w, "   3. Choose \"Add to Home Screen\" to install")
	fmt.Fprintln(w)
	if p.Name == headers.Hardened.Name {
		fmt.Fprintln(w, "🔒 Security headers on. Use HTTPS in production.")
	} else {
		fmt.Fprintln(w, "⚡ Caching off. Rebuild and reload to see changes.")
	}
	fmt.Fprintln(w, "Press Ctrl+C to stop")
	fmt.Fprintln(w, strings.Repeat("=", 50))
}
