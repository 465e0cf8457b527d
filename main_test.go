package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmdConflictingFlags(t *testing.T) {
	tests := [][]string{
		{"--last-run", "--since", "2024-01-01"},
		{"-l", "-u", "2024-01-01"},
		{"--all", "--last-run"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if _, err := execute(t, args...); err == nil {
				t.Errorf("Execute(%v) error = nil, want conflict", args)
			}
		})
	}
}

func TestRootCmdVersion(t *testing.T) {
	out, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "2.0.0") {
		t.Errorf("version output = %q", out)
	}
}

func TestRootCmdMissingToken(t *testing.T) {
	t.Setenv("REPLICATE_API_TOKEN", "")
	t.Chdir(t.TempDir())

	_, err := execute(t)
	if !errors.Is(err, config.ErrMissingToken) {
		t.Errorf("Execute() error = %v, want ErrMissingToken", err)
	}
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	t.Setenv("REPLICATE_API_TOKEN", "r8_test")
	t.Setenv("OUTPUT_DIR", "from-env")
	t.Chdir(t.TempDir())

	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--since", "3 days ago", "--output-dir", "from-flag", "--no-zip"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg, err := loadConfig(cmd, flags{since: "3 days ago", outputDir: "from-flag", noZip: true})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.OutputDir != "from-flag" || cfg.CreateZips || cfg.Filter.Since != "3 days ago" {
		t.Errorf("flags not applied: %+v", cfg)
	}
}
