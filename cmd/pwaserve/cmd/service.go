package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joeblew999/pwaserve/internal/bootstrap"
	"github.com/joeblew999/pwaserve/internal/service"
)

var (
	serviceWorkDir string
	serviceName    string
	serviceFlags   serverFlags
)

// ServiceCmd is the parent command for service operations.
var ServiceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage pwaserve as a system service",
	Long: `Install and manage pwaserve as a system service, so the bundle stays
reachable from the phone without keeping a terminal open.

On macOS, this installs as a LaunchAgent (user service).
On Linux, this installs as a systemd user service.
On Windows, this installs as a Windows service.

The server flags given at install time (--dir, --profile, --port,
--bind, --header) are recorded in the service definition.

Examples:
  pwaserve service install                      # dev profile for ./build/web
  pwaserve service install --profile hardened   # hardened profile on 8080
  pwaserve service start                        # Start the service
  pwaserve service status                       # Check service status
  pwaserve service stop                         # Stop the service
  pwaserve service uninstall                    # Remove the service`,
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install pwaserve as a system service",
	RunE:  runServiceInstall,
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the pwaserve service",
	RunE:  runServiceUninstall,
}

var serviceStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pwaserve service",
	RunE:  runServiceStart,
}

var serviceStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the pwaserve service",
	RunE:  runServiceStop,
}

var serviceRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the pwaserve service",
	RunE:  runServiceRestart,
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check service status",
	RunE:  runServiceStatus,
}

var serviceRunCmd = &cobra.Command{
	Use:    "run",
	Short:  "Run the service (called by service manager)",
	Hidden: true, // Internal use only
	RunE:   runServiceRun,
}

func init() {
	ServiceCmd.PersistentFlags().StringVar(&serviceWorkDir, "workdir", "", "Project directory (default: current directory)")
	ServiceCmd.PersistentFlags().StringVarP(&serviceName, "name", "n", "", "Service name (default: pwaserve-<dirname>)")
	serviceFlags.register(ServiceCmd.PersistentFlags())

	ServiceCmd.AddCommand(serviceInstallCmd)
	ServiceCmd.AddCommand(serviceUninstallCmd)
	ServiceCmd.AddCommand(serviceStartCmd)
	ServiceCmd.AddCommand(serviceStopCmd)
	ServiceCmd.AddCommand(serviceRestartCmd)
	ServiceCmd.AddCommand(serviceStatusCmd)
	ServiceCmd.AddCommand(serviceRunCmd)
}

func getServiceConfig(cmd *cobra.Command) (service.Config, error) {
	srv, err := serviceFlags.resolve(cmd.Flags(), nil)
	if err != nil {
		return service.Config{}, err
	}

	workDir := serviceWorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}

	cfg := service.ConfigForProject(workDir, srv)
	if serviceName != "" {
		cfg.Name = serviceName
		cfg.DisplayName = fmt.Sprintf("pwaserve: %s", serviceName)
	}
	return cfg, nil
}

func newServiceManager(cmd *cobra.Command) (*service.Manager, service.Config, error) {
	cfg, err := getServiceConfig(cmd)
	if err != nil {
		return nil, cfg, err
	}
	log := bootstrap.NewLogger(cmd.ErrOrStderr(), cfg.Server.LogLevel)
	mgr, err := service.NewManager(cfg, log)
	return mgr, cfg, err
}

func runServiceInstall(cmd *cobra.Command, args []string) error {
	mgr, cfg, err := newServiceManager(cmd)
	if err != nil {
		return err
	}

	if err := mgr.Install(); err != nil {
		return err
	}

	printInstalled(cmd.OutOrStdout(), cfg, mgr.Platform())
	return nil
}

func runServiceUninstall(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	mgr, cfg, err := newServiceManager(cmd)
	if err != nil {
		return err
	}

	// Try to stop first (ignore errors)
	_ = mgr.Stop()

	if err := mgr.Uninstall(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Service '%s' uninstalled\n", cfg.Name)
	return nil
}

func runServiceStart(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	mgr, cfg, err := newServiceManager(cmd)
	if err != nil {
		return err
	}

	if err := mgr.Start(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Service '%s' started\n", cfg.Name)
	fmt.Fprintf(out, "Run 'pwaserve ip --port %d' for the phone URL\n", cfg.Server.ListenPort())
	return nil
}

func runServiceStop(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	mgr, cfg, err := newServiceManager(cmd)
	if err != nil {
		return err
	}

	if err := mgr.Stop(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Service '%s' stopped\n", cfg.Name)
	return nil
}

func runServiceRestart(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	mgr, cfg, err := newServiceManager(cmd)
	if err != nil {
		return err
	}

	if err := mgr.Restart(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Service '%s' restarted\n", cfg.Name)
	return nil
}

func runServiceStatus(cmd *cobra.Command, args []string) error {
	mgr, cfg, err := newServiceManager(cmd)
	if err != nil {
		return err
	}

	status, err := mgr.Status()
	printStatus(cmd.OutOrStdout(), cfg, status, mgr.Platform(), err)
	return nil
}

func runServiceRun(cmd *cobra.Command, args []string) error {
	mgr, _, err := newServiceManager(cmd)
	if err != nil {
		return err
	}

	// This blocks and runs the service
	return mgr.Run()
}

func printInstalled(w io.Writer, cfg service.Config, platform string) {
	fmt.Fprintf(w, "Service '%s' installed\n", cfg.Name)
	fmt.Fprintf(w, "  Platform: %s\n", platform)
	fmt.Fprintf(w, "  Working directory: %s\n", cfg.WorkDir)
	fmt.Fprintf(w, "  Serving: %s (%s profile, port %d)\n", cfg.RootPath(), cfg.Server.Profile, cfg.Server.ListenPort())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "To start the service, run: pwaserve service start")
}

func printStatus(w io.Writer, cfg service.Config, status, platform string, err error) {
	if err != nil {
		fmt.Fprintf(w, "Service '%s': %s (error: %v)\n", cfg.Name, status, err)
		return
	}
	fmt.Fprintf(w, "Service '%s': %s\n", cfg.Name, status)
	fmt.Fprintf(w, "  Platform: %s\n", platform)
	fmt.Fprintf(w, "  Working directory: %s\n", cfg.WorkDir)
}
