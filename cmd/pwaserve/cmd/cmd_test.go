package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/pwaserve/internal/config"
	"github.com/joeblew999/pwaserve/internal/headers"
	"github.com/joeblew999/pwaserve/internal/server"
	"github.com/joeblew999/pwaserve/internal/service"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testRun struct {
	root   *cobra.Command
	stdout *syncBuffer
	stderr *syncBuffer
}

// newRun builds a fresh command tree. The subcommands are package-level,
// so flag values from earlier runs are reset first.
func newRun(t *testing.T, args ...string) *testRun {
	t.Helper()
	root := NewRootCmd()
	resetFlags(root)

	r := &testRun{root: root, stdout: &syncBuffer{}, stderr: &syncBuffer{}}
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SetArgs(args)
	return r
}

func (r *testRun) execute(ctx context.Context) error {
	return r.root.ExecuteContext(ctx)
}

func resetFlags(c *cobra.Command) {
	for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	// cobra only inherits the parent's context when the child's is nil.
	c.SetContext(nil)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeBundle(t *testing.T, withWorker bool) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "build", "web")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "icons"), 0755))
	files := map[string]string{
		"index.html":           "<html>SecureChat</html>",
		"manifest.json":        `{"name":"SecureChat"}`,
		"icons/Icon-192.png":   "png",
		"assets/AssetManifest": "{}",
	}
	if withWorker {
		files["flutter_service_worker.js"] = "//sw"
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestServeMissingRoot(t *testing.T) {
	t.Chdir(t.TempDir())
	missing := filepath.Join(t.TempDir(), "build", "web")

	r := newRun(t, "serve", "--dir", missing, "--bind", "127.0.0.1")
	err := r.execute(context.Background())

	assert.ErrorIs(t, err, server.ErrRootMissing)
	assert.Contains(t, r.stderr.String(), config.BuildCommand)
	assert.NotContains(t, r.stdout.String(), "Press Ctrl+C")
}

func TestServeBadPort(t *testing.T) {
	t.Chdir(t.TempDir())
	r := newRun(t, "serve", "eighty")
	assert.ErrorContains(t, r.execute(context.Background()), "invalid port")
}

func TestServePortInUse(t *testing.T) {
	t.Chdir(t.TempDir())
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	r := newRun(t, "serve", fmt.Sprint(port), "--dir", writeBundle(t, true), "--bind", "127.0.0.1")
	err = r.execute(context.Background())

	assert.ErrorContains(t, err, "failed to listen")
	assert.NotContains(t, r.stdout.String(), "Press Ctrl+C")
	assert.NotContains(t, r.stdout.String(), "PWA server running")
}

func TestServeUntilInterrupted(t *testing.T) {
	t.Chdir(t.TempDir())
	root := writeBundle(t, true)
	port := freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRun(t, "serve", fmt.Sprint(port), "--dir", root, "--bind", "127.0.0.1", "-H", "X-Build=42")
	done := make(chan error, 1)
	go func() { done <- r.execute(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/", port)
	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = http.Get(url)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "42", resp.Header.Get("X-Build"))

	out := r.stdout.String()
	assert.Contains(t, out, "dev profile")
	assert.Contains(t, out, fmt.Sprintf("http://localhost:%d", port))
	assert.Contains(t, out, fmt.Sprintf("http://127.0.0.1:%d", port))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after interrupt")
	}
	assert.Contains(t, r.stdout.String(), "Server stopped")
}

func TestServerFlagsResolve(t *testing.T) {
	t.Chdir(t.TempDir())

	var f serverFlags
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	f.register(fs)
	require.NoError(t, fs.Parse([]string{"--port", "9000", "--profile", "hardened", "-H", "X-Build=42", "-H", "Pragma=none"}))

	cfg, err := f.resolve(fs, nil)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "hardened", cfg.Profile)
	assert.Equal(t, config.DefaultRoot, cfg.Root)
	assert.Equal(t, map[string]string{"X-Build": "42", "Pragma": "none"}, cfg.Headers)

	// The positional port wins over --port.
	cfg, err = f.resolve(fs, []string{"9100"})
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
}

func TestServerFlagsResolveUnsetUsesFile(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(config.DefaultFile, []byte("profile: hardened\nroot: dist\n"), 0644))

	var f serverFlags
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	f.register(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := f.resolve(fs, nil)
	require.NoError(t, err)
	assert.Equal(t, "hardened", cfg.Profile)
	assert.Equal(t, "dist", cfg.Root)
	assert.Equal(t, 8080, cfg.ListenPort())
}

func TestServerFlagsRejectUnknownProfile(t *testing.T) {
	t.Chdir(t.TempDir())

	var f serverFlags
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	f.register(fs)
	require.NoError(t, fs.Parse([]string{"--profile", "prod"}))

	_, err := f.resolve(fs, nil)
	assert.ErrorContains(t, err, "dev, hardened")
}

func TestLanHost(t *testing.T) {
	assert.Equal(t, "192.168.1.20", lanHost("0.0.0.0", "192.168.1.20"))
	assert.Equal(t, "192.168.1.20", lanHost("", "192.168.1.20"))
	assert.Equal(t, "127.0.0.1", lanHost("localhost", "192.168.1.20"))
	assert.Equal(t, "10.0.0.5", lanHost("10.0.0.5", "192.168.1.20"))
}

func TestIP(t *testing.T) {
	r := newRun(t, "ip", "--port", "9000")
	require.NoError(t, r.execute(context.Background()))

	out := r.stdout.String()
	assert.Contains(t, out, "Local IP: ")
	assert.Regexp(t, `Phone URL: http://[0-9.]+:9000`, out)
}

func TestProfiles(t *testing.T) {
	r := newRun(t, "profiles")
	require.NoError(t, r.execute(context.Background()))

	out := r.stdout.String()
	assert.Contains(t, out, "dev (port 8000)")
	assert.Contains(t, out, "hardened (port 8080)")
	for _, h := range headers.Hardened.Headers {
		assert.Contains(t, out, h.String())
	}
}

func TestCheck(t *testing.T) {
	r := newRun(t, "check", "--dir", writeBundle(t, true))
	require.NoError(t, r.execute(context.Background()))
	assert.Contains(t, r.stdout.String(), "✓ service worker (flutter_service_worker.js)")

	r = newRun(t, "check", "--dir", writeBundle(t, false))
	err := r.execute(context.Background())
	assert.ErrorContains(t, err, "service worker")
	assert.Contains(t, r.stdout.String(), "✗ service worker")

	r = newRun(t, "check", "--dir", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, r.execute(context.Background()))
	assert.Contains(t, r.stderr.String(), config.BuildCommand)
}

func TestProbe(t *testing.T) {
	ts := httptest.NewServer(headers.Middleware(headers.Dev, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})))
	defer ts.Close()

	r := newRun(t, "probe", ts.URL)
	require.NoError(t, r.execute(context.Background()))
	assert.Contains(t, r.stdout.String(), "all 2 dev headers present")

	r = newRun(t, "probe", ts.URL, "--profile", "hardened", "--retries", "0")
	err := r.execute(context.Background())
	assert.ErrorContains(t, err, "hardened profile")
	assert.Contains(t, r.stdout.String(), "missing X-Frame-Options: DENY")
}

func TestConfigInitAndShow(t *testing.T) {
	t.Chdir(t.TempDir())

	r := newRun(t, "config", "init")
	require.NoError(t, r.execute(context.Background()))
	assert.FileExists(t, config.DefaultFile)

	r = newRun(t, "config", "init")
	assert.ErrorContains(t, r.execute(context.Background()), "already exists")

	r = newRun(t, "config", "init", "--force")
	require.NoError(t, r.execute(context.Background()))

	r = newRun(t, "config", "show")
	require.NoError(t, r.execute(context.Background()))
	out := r.stdout.String()
	assert.Contains(t, out, "port: 8000")
	assert.Contains(t, out, "root: build/web")
	assert.Contains(t, out, "profile: dev")
}

func TestServiceConfigFromFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	project := t.TempDir()

	resetFlags(ServiceCmd)
	require.NoError(t, ServiceCmd.ParseFlags([]string{
		"--workdir", project, "--profile", "hardened", "--dir", "dist", "-H", "X-Build=42",
	}))

	cfg, err := getServiceConfig(ServiceCmd)
	require.NoError(t, err)
	assert.Equal(t, "pwaserve-"+filepath.Base(project), cfg.Name)
	assert.Equal(t, filepath.Join(project, "dist"), cfg.RootPath())
	assert.Equal(t, "hardened", cfg.Server.Profile)
	assert.Contains(t, cfg.Arguments(), "X-Build=42")

	resetFlags(ServiceCmd)
	require.NoError(t, ServiceCmd.ParseFlags([]string{"--workdir", project, "--name", "securechat"}))
	cfg, err = getServiceConfig(ServiceCmd)
	require.NoError(t, err)
	assert.Equal(t, "securechat", cfg.Name)
	assert.Equal(t, "pwaserve: securechat", cfg.DisplayName)
}

func TestVersion(t *testing.T) {
	SetVersion("v1.2.3")
	defer SetVersion("dev")

	r := newRun(t, "version")
	require.NoError(t, r.execute(context.Background()))
	assert.Equal(t, "v1.2.3\n", r.stdout.String())

	r = newRun(t, "version", "--verbose")
	require.NoError(t, r.execute(context.Background()))
	out := r.stdout.String()
	assert.Contains(t, out, "pwaserve v1.2.3\n")
	assert.Contains(t, out, "go:       "+runtime.Version())
	assert.Contains(t, out, "platform: "+runtime.GOOS+"/"+runtime.GOARCH)
}

func TestServiceOutput(t *testing.T) {
	project := t.TempDir()
	srv := config.Default()
	srv.Profile = "hardened"
	cfg := service.ConfigForProject(project, srv)

	var buf bytes.Buffer
	printInstalled(&buf, cfg, "linux-systemd")
	out := buf.String()
	assert.Contains(t, out, "Service '"+cfg.Name+"' installed")
	assert.Contains(t, out, "Platform: linux-systemd")
	assert.Contains(t, out, fmt.Sprintf("Serving: %s (hardened profile, port 8080)", filepath.Join(project, config.DefaultRoot)))

	buf.Reset()
	printStatus(&buf, cfg, "running", "linux-systemd", nil)
	assert.Contains(t, buf.String(), "Service '"+cfg.Name+"': running")
	assert.Contains(t, buf.String(), "Working directory: "+project)

	buf.Reset()
	printStatus(&buf, cfg, "unknown", "linux-systemd", errors.New("not installed"))
	assert.Equal(t, "Service '"+cfg.Name+"': unknown (error: not installed)\n", buf.String())
}
