package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"serve": false, "shell": false, "config": false, "version": false}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("expected %q subcommand", name)
		}
	}
}

func TestEnvFileLoadsBeforeCommand(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "qult.env")
	if err := os.WriteFile(envPath, []byte("QULT_TEST_CONFIG_DIR="+dir+"\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("QULT_TEST_CONFIG_DIR") })

	if _, err := runRoot(t, "--env-file", envPath, "version"); err != nil {
		t.Fatalf("version: %v", err)
	}
	if got := os.Getenv("QULT_TEST_CONFIG_DIR"); got != dir {
		t.Fatalf("expected env file to be applied, got %q", got)
	}
}

func TestEnvFileMissingFails(t *testing.T) {
	_, err := runRoot(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "version")
	if err == nil {
		t.Fatalf("expected missing env file to fail")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runRoot(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "qult ") {
		t.Fatalf("unexpected version output %q", out)
	}
	out, err = runRoot(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json: %v", err)
	}
	if !strings.Contains(out, `"module"`) {
		t.Fatalf("expected json output, got %q", out)
	}
}
