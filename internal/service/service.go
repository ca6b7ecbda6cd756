// Package service runs the asset server as a user-level system service using kardianos/service.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kardianos/service"
	"github.com/rs/zerolog"

	"github.com/joeblew999/pwaserve/internal/config"
	"github.com/joeblew999/pwaserve/internal/server"
)

// Config holds service configuration.
type Config struct {
	Name        string // Service name (e.g., "pwaserve-securechat")
	DisplayName string // Human-readable name
	Description string // Service description
	WorkDir     string // Working directory; a relative asset root resolves against it
	UserService bool   // Install as user service (not root)

	Server config.Config // Captured at install time and passed back via arguments
}

// ConfigForProject returns a config named after the project directory.
func ConfigForProject(projectDir string, srv config.Config) Config {
	name := filepath.Base(projectDir)
	return Config{
		Name:        fmt.Sprintf("pwaserve-%s", name),
		DisplayName: fmt.Sprintf("pwaserve: %s", name),
		Description: fmt.Sprintf("Serves %s for PWA testing on the local network", filepath.Join(name, srv.Root)),
		WorkDir:     projectDir,
		UserService: true,
		Server:      srv,
	}
}

// Arguments returns the command line the service manager uses to start us.
func (c Config) Arguments() []string {
	args := []string{
		"service", "run",
		"--name", c.Name,
		"--dir", c.Server.Root,
		"--profile", c.Server.Profile,
		"--bind", c.Server.Bind,
		"--port", strconv.Itoa(c.Server.ListenPort()),
	}
	names := make([]string, 0, len(c.Server.Headers))
	for name := range c.Server.Headers {
		names = append(names, name)
	}
	// Deterministic order keeps the generated unit file stable across installs.
	sort.Strings(names)
	for _, name := range names {
		args = append(args, "--header", name+"="+c.Server.Headers[name])
	}
	return args
}

// RootPath resolves the asset root against WorkDir.
func (c Config) RootPath() string {
	if filepath.IsAbs(c.Server.Root) || c.WorkDir == "" {
		return c.Server.Root
	}
	return filepath.Join(c.WorkDir, c.Server.Root)
}

// program implements the service.Interface.
type program struct {
	cfg Config
	log zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(s service.Service) error {
	p.log.Info().Str("service", p.cfg.Name).Msg("starting service")

	srvCfg := p.cfg.Server
	srvCfg.Root = p.cfg.RootPath()
	srv, err := server.New(srvCfg, p.log)
	if err != nil {
		return err
	}
	// Fail the start instead of leaving a service that serves nothing.
	if err := srv.CheckRoot(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe(ctx)
		if err != nil {
			p.log.Error().Err(err).Msg("server exited")
		}
		done <- err
	}()

	p.mu.Lock()
	p.cancel, p.done = cancel, done
	p.mu.Unlock()
	return nil
}

func (p *program) Stop(s service.Service) error {
	p.log.Info().Str("service", p.cfg.Name).Msg("stopping service")

	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	return <-done
}

// Manager manages service lifecycle operations.
type Manager struct {
	svc    service.Service
	config Config
}

// NewManager creates a new service manager.
func NewManager(cfg Config, log zerolog.Logger) (*Manager, error) {
	svcConfig := &service.Config{
		Name:             cfg.Name,
		DisplayName:      cfg.DisplayName,
		Description:      cfg.Description,
		WorkingDirectory: cfg.WorkDir,
		Arguments:        cfg.Arguments(),
	}

	if cfg.UserService {
		svcConfig.Option = service.KeyValue{
			"UserService": true,
		}
	}

	prg := &program{cfg: cfg, log: log}

	svc, err := service.New(prg, svcConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	return &Manager{
		svc:    svc,
		config: cfg,
	}, nil
}

// Install installs the service.
func (m *Manager) Install() error {
	if info, err := os.Stat(m.config.RootPath()); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", server.ErrRootMissing, m.config.RootPath())
	}
	err := m.svc.Install()
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("service %s already installed", m.config.Name)
		}
		return fmt.Errorf("failed to install: %w", err)
	}
	return nil
}

// Uninstall removes the service.
func (m *Manager) Uninstall() error {
	err := m.svc.Uninstall()
	if err != nil {
		if strings.Contains(err.Error(), "not installed") {
			return fmt.Errorf("service %s not installed", m.config.Name)
		}
		return fmt.Errorf("failed to uninstall: %w", err)
	}
	return nil
}

// Start starts the service.
func (m *Manager) Start() error {
	status, _ := m.svc.Status()
	if status == service.StatusRunning {
		return fmt.Errorf("service %s already running", m.config.Name)
	}

	if err := m.svc.Start(); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	return nil
}

// Stop stops the service.
func (m *Manager) Stop() error {
	status, _ := m.svc.Status()
	if status == service.StatusStopped {
		return fmt.Errorf("service %s already stopped", m.config.Name)
	}

	if err := m.svc.Stop(); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	return nil
}

// Restart restarts the service.
func (m *Manager) Restart() error {
	if err := m.svc.Restart(); err != nil {
		return fmt.Errorf("failed to restart: %w", err)
	}
	return nil
}

// Status returns the service status.
func (m *Manager) Status() (string, error) {
	status, err := m.svc.Status()
	if err != nil {
		return "unknown", err
	}

	switch status {
	case service.StatusRunning:
		return "running", nil
	case service.StatusStopped:
		return "stopped", nil
	default:
		return "unknown", nil
	}
}

// Run runs the service (called when the service manager starts us).
func (m *Manager) Run() error {
	return m.svc.Run()
}

// Platform returns the service platform (e.g., "darwin-launchd", "linux-systemd").
func (m *Manager) Platform() string {
	return service.Platform()
}
