package integration_test

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/qult"
	"pkt.systems/qult/httpapi"
	"pkt.systems/qult/internal/command"
	"pkt.systems/qult/internal/content"
	"pkt.systems/qult/schema"
	"pkt.systems/qult/sshserver"
)

type testServer struct {
	httpURL string
	sshAddr string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	httpLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen http: %v", err)
	}
	sshLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen ssh: %v", err)
	}

	cfg := qult.ServerConfig{
		Engine: qult.EngineConfig{
			Shell:  schema.ShellConfig{Latency: 0},
			Router: command.RouterConfig{FetchTimeout: 5 * time.Second},
		},
		Content: content.Config{Source: content.KindEmbedded},
		HTTP:    httpapi.Config{Addr: httpLn.Addr().String()},
		SSH: sshserver.Config{
			Addr:        sshLn.Addr().String(),
			HostKeyPath: filepath.Join(t.TempDir(), "ssh_host_key"),
			Theme:       "outrun",
			Style:       "notty",
		},
	}
	srv, err := qult.New(cfg, qult.ServerDeps{HTTPListener: httpLn, SSHListener: sshLn}, qult.WithHTTP(), qult.WithSSH())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		cancel()
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = srv.Stop(stopCtx)
		cancel()
	})
	return &testServer{
		httpURL: "http://" + httpLn.Addr().String(),
		sshAddr: sshLn.Addr().String(),
	}
}

func requireLong(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

func requireWebUI(t *testing.T) {
	t.Helper()
	requireLong(t)
	if os.Getenv("QULT_WEBUI_TEST") != "1" {
		t.Skip("set QULT_WEBUI_TEST=1 to run the browser test")
	}
}

func containsAll(value string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(value, term) {
			return false
		}
	}
	return true
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func expectOutput(t *testing.T, buffer *lockedBuffer, substr string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if strings.Contains(buffer.String(), substr) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %q in output: %s", substr, buffer.String())
}
