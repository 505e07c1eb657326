package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := newRootCmd("1.2.3", "abc123", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeConfig writes a config with one sqlite service named local.
func writeConfig(t *testing.T, allowRecreate bool) (configPath, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	allow := "false"
	if allowRecreate {
		allow = "true"
	}
	content := `services:
  - name: local
    driver: sqlite
    dsn: ` + filepath.Join(dir, "media.db") + `
    allow_recreate: ` + allow + `
logging:
  level: error
`
	configPath = filepath.Join(dir, "mediatally.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return configPath, filepath.Join(dir, "history")
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var info buildInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" {
		t.Errorf("got %+v", info)
	}
	if info.Schema != "mediatally" || info.Tables != 8 {
		t.Errorf("schema = %s with %d tables, want mediatally with 8", info.Schema, info.Tables)
	}
}

func TestSchemaDDL(t *testing.T) {
	cfg, data := writeConfig(t, false)
	tests := []struct {
		dialect string
		want    string
	}{
		{"generic", "CREATE TABLE person ("},
		{"sqlite", `CREATE UNIQUE INDEX`},
		{"mysql", "CREATE TABLE `person`"},
		{"mssql", "CREATE TABLE [dbo].[person]"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			out, err := execute(t, "--config", cfg, "--data-dir", data, "schema", "ddl", "--dialect", tt.dialect)
			if err != nil {
				t.Fatalf("ddl: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
			if strings.Contains(out, "DROP TABLE") {
				t.Error("ddl output contains drops")
			}
		})
	}
}

func TestSchemaDDLUnknownDialect(t *testing.T) {
	if _, err := execute(t, "schema", "ddl", "--dialect", "oracle"); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
}

func TestSchemaPlan(t *testing.T) {
	cfg, data := writeConfig(t, false)
	out, err := execute(t, "--config", cfg, "--data-dir", data, "schema", "plan", "local")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for _, phase := range []string{"-- drop", "-- create", "-- unique"} {
		if !strings.Contains(out, phase) {
			t.Errorf("plan missing %q:\n%s", phase, out)
		}
	}
}

func TestRecreateRequiresConfirmation(t *testing.T) {
	cfg, data := writeConfig(t, true)
	_, err := execute(t, "--config", cfg, "--data-dir", data, "schema", "recreate", "local")
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("got %v, want a --yes hint", err)
	}
}

func TestRecreateNotAllowed(t *testing.T) {
	cfg, data := writeConfig(t, false)
	_, err := execute(t, "--config", cfg, "--data-dir", data, "schema", "recreate", "local", "--yes")
	if err == nil || !strings.Contains(err.Error(), "allow_recreate") {
		t.Fatalf("got %v, want allow_recreate refusal", err)
	}
}

func TestRecreateCheckHistory(t *testing.T) {
	cfg, data := writeConfig(t, true)

	out, err := execute(t, "--config", cfg, "--data-dir", data, "schema", "check", "local")
	if err == nil {
		t.Fatalf("check of an empty database should report drift:\n%s", out)
	}
	if !strings.Contains(out, "missing_table") {
		t.Errorf("check output missing missing_table:\n%s", out)
	}

	if _, err := execute(t, "--config", cfg, "--data-dir", data, "schema", "recreate", "local", "--yes"); err != nil {
		t.Fatalf("recreate: %v", err)
	}

	out, err = execute(t, "--config", cfg, "--data-dir", data, "schema", "check", "local", "--json")
	if err != nil {
		t.Fatalf("check after recreate: %v\n%s", err, out)
	}
	var report struct {
		HasDrift bool `json:"has_drift"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if report.HasDrift {
		t.Error("report has drift after recreate")
	}

	out, err = execute(t, "--config", cfg, "--data-dir", data, "history", "list", "--service", "local")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if lines := strings.Count(strings.TrimSpace(out), "\n") + 1; lines != 4 {
		t.Errorf("got %d lines, want header, rule and 2 runs:\n%s", lines, out)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediatally.yaml")
	if _, err := execute(t, "config", "init", path); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := execute(t, "config", "init", path); err == nil {
		t.Fatal("second init without --force should fail")
	}
	if _, err := execute(t, "config", "init", path, "--force"); err != nil {
		t.Fatalf("init --force: %v", err)
	}
}
