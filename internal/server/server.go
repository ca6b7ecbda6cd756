// Package server serves a pre-built web bundle with a fixed header profile.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/joeblew999/pwaserve/internal/config"
	"github.com/joeblew999/pwaserve/internal/headers"
)

// ErrRootMissing is returned when the asset root is absent or not a directory.
var ErrRootMissing = errors.New("asset root does not exist")

// Server is a static file server over the asset root.
type Server struct {
	cfg     config.Config
	profile headers.Profile
	log     zerolog.Logger
	handler http.Handler
}

// New creates a Server. The configuration is validated but the asset root
// is only checked when serving starts (see CheckRoot).
func New(cfg config.Config, log zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	profile, err := cfg.HeaderProfile()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		profile: profile,
		log:     log.With().Str("component", "server").Logger(),
	}
	files := http.FileServer(http.Dir(cfg.Root))
	s.handler = s.withAccessLog(headers.Middleware(profile, files))
	return s, nil
}

// Config returns the configuration the server was built with.
func (s *Server) Config() config.Config {
	return s.cfg
}

// Profile returns the effective header profile.
func (s *Server) Profile() headers.Profile {
	return s.profile
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// CheckRoot verifies the asset root exists and is a directory.
func (s *Server) CheckRoot() error {
	info, err := os.Stat(s.cfg.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrRootMissing, s.cfg.Root)
		}
		return fmt.Errorf("failed to stat asset root %s: %w", s.cfg.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRootMissing, s.cfg.Root)
	}
	return nil
}

// Listen checks the asset root and binds the configured address.
// No listener is opened if the check fails.
func (s *Server) Listen() (net.Listener, error) {
	if err := s.CheckRoot(); err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	return ln, nil
}

// ListenAndServe binds the configured address (see Listen) and serves until
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then closes the server without
// draining in-flight requests. It returns nil on a cancellation.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	h := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.Serve(ln)
	}()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("root", s.cfg.Root).
		Str("profile", s.profile.Name).
		Msg("serving assets")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	case <-ctx.Done():
		s.log.Info().Msg("stopping server")
		if err := h.Close(); err != nil {
			return fmt.Errorf("failed to close server: %w", err)
		}
		<-errCh
		return nil
	}
}
