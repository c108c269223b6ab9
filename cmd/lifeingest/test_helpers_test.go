package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lifeingest/internal/config"
	"lifeingest/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithHistory())
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)

	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(base, "config.toml"),
		baseDir:    base,
	}
	writeConfigForEnv(t, env)
	return env
}

// writeConfigForEnv persists env.cfg after a test tweaks it.
func writeConfigForEnv(t *testing.T, env *cliTestEnv) {
	t.Helper()
	testsupport.WriteConfig(t, env.configPath, env.cfg)
}

// writeArchive builds a Takeout-like archive with one calendar event and one message.
func (e *cliTestEnv) writeArchive(t *testing.T, name string) string {
	t.Helper()
	return testsupport.WriteZip(t, filepath.Join(e.baseDir, "takeout", name),
		testsupport.ZipEntry{Name: "Takeout/Calendar/cal.ics", Body: testsupport.Calendar(testsupport.Event("1@google.com", ":20240102T100000", "Standup"))},
		testsupport.ZipEntry{Name: "Takeout/Mail/All mail.mbox", Body: testsupport.Message([]testsupport.Header{
			{Name: "Date", Value: "Tue, 2 Jan 2024 10:05:00 +0000"},
			{Name: "From", Value: "x@y.com"},
			{Name: "Subject", Value: "Re: Standup"},
		}, "See you.")},
	)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
