package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clientbook/internal/config"
	"clientbook/internal/testsupport"
)

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "clientbook.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func setupCLI(t *testing.T) string {
	t.Helper()
	t.Setenv("USER", "tester")
	cfg := testsupport.NewConfig(t)
	return writeTestConfig(t, cfg)
}

func TestAddReportsEachOutcome(t *testing.T) {
	configPath := setupCLI(t)

	out, _, err := runCLI(t, configPath, "", "add", "+15551234567")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "Added +15551234567") {
		t.Fatalf("unexpected add output: %q", out)
	}

	out, _, err = runCLI(t, configPath, "", "add", "+15551234567")
	if err != nil {
		t.Fatalf("add duplicate: %v", err)
	}
	if !strings.Contains(out, "Already exists") {
		t.Fatalf("unexpected duplicate output: %q", out)
	}

	out, _, err = runCLI(t, configPath, "", "add", "5551234567")
	if err != nil {
		t.Fatalf("add invalid: %v", err)
	}
	if !strings.Contains(out, "Invalid format") {
		t.Fatalf("unexpected invalid output: %q", out)
	}
}

func TestLookupShowsSubmitter(t *testing.T) {
	configPath := setupCLI(t)

	if _, _, err := runCLI(t, configPath, "", "add", "--submitter", "alice", "+4915112345678"); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, _, err := runCLI(t, configPath, "", "lookup", "+4915112345678")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !strings.Contains(out, "by alice") {
		t.Fatalf("lookup output missing submitter: %q", out)
	}

	out, _, err = runCLI(t, configPath, "", "lookup", "+4915100000000")
	if err != nil {
		t.Fatalf("lookup missing: %v", err)
	}
	if !strings.Contains(out, "not found") {
		t.Fatalf("expected not found, got %q", out)
	}
}

func TestLookupQuietReportsPresence(t *testing.T) {
	configPath := setupCLI(t)

	if _, _, err := runCLI(t, configPath, "", "add", "+15551234567"); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, _, err := runCLI(t, configPath, "", "lookup", "-q", "+15551234567")
	if err != nil {
		t.Fatalf("lookup -q: %v", err)
	}
	if strings.TrimSpace(out) != "yes" {
		t.Fatalf("expected yes, got %q", out)
	}

	out, _, err = runCLI(t, configPath, "", "lookup", "--quiet", "+15559999999")
	if !errors.Is(err, errNotStored) {
		t.Fatalf("expected errNotStored, got %v", err)
	}
	if strings.TrimSpace(out) != "no" {
		t.Fatalf("expected no, got %q", out)
	}
}

func TestBatchReadsStdin(t *testing.T) {
	configPath := setupCLI(t)

	out, _, err := runCLI(t, configPath, "+15550000001, +15550000001\nnot-a-number\n", "batch")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if !strings.Contains(out, "Total: 1 added, 1 duplicate, 1 invalid") {
		t.Fatalf("unexpected batch output: %q", out)
	}
}

func TestBatchJSON(t *testing.T) {
	configPath := setupCLI(t)

	out, _, err := runCLI(t, configPath, "", "batch", "--json", "+15550000001", "+15550000002", "x")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	var payload struct {
		Added     []string `json:"added"`
		Duplicate []string `json:"duplicate"`
		Invalid   []string `json:"invalid"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode batch json: %v\n%s", err, out)
	}
	if len(payload.Added) != 2 || len(payload.Duplicate) != 0 || len(payload.Invalid) != 1 {
		t.Fatalf("unexpected partitions: %+v", payload)
	}
}

func TestListJSONNewestFirst(t *testing.T) {
	configPath := setupCLI(t)

	for _, number := range []string{"+15550000001", "+15550000002"} {
		if _, _, err := runCLI(t, configPath, "", "add", number); err != nil {
			t.Fatalf("add %s: %v", number, err)
		}
	}
	out, _, err := runCLI(t, configPath, "", "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var listed []listedRecord
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 records, got %d", len(listed))
	}
	if listed[0].PhoneNumber != "+15550000002" {
		t.Fatalf("expected newest first, got %+v", listed)
	}
	if listed[0].Submitter != "tester" {
		t.Fatalf("expected submitter from USER, got %q", listed[0].Submitter)
	}
}

func TestListTSVWhenNotTerminal(t *testing.T) {
	configPath := setupCLI(t)

	if _, _, err := runCLI(t, configPath, "", "add", "+15550000001"); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, _, err := runCLI(t, configPath, "", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.HasPrefix(out, "ID\tSubmitter\tPhone\tAdded\n") {
		t.Fatalf("expected TSV header, got %q", out)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	source := setupCLI(t)
	if _, _, err := runCLI(t, source, "", "batch", "+15550000001", "+15550000002"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	exportPath := filepath.Join(t.TempDir(), "clients.csv")
	out, _, err := runCLI(t, source, "", "export", "--output", exportPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Exported 2 records") {
		t.Fatalf("unexpected export output: %q", out)
	}

	target := setupCLI(t)
	if _, _, err := runCLI(t, target, "", "add", "+15550000001"); err != nil {
		t.Fatalf("seed target: %v", err)
	}
	out, _, err = runCLI(t, target, "", "import", exportPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "import complete: 2 rows, 1 added, 1 duplicate, 0 skipped") {
		t.Fatalf("unexpected import output: %q", out)
	}
}

func TestExportToDirectoryUsesTimestampedName(t *testing.T) {
	configPath := setupCLI(t)
	dir := t.TempDir()

	out, _, err := runCLI(t, configPath, "", "export", "--format", "xlsx", "--output", dir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one xlsx export, got %v (output %q)", matches, out)
	}
}

func TestImportRejectsMalformedFile(t *testing.T) {
	configPath := setupCLI(t)
	path := filepath.Join(t.TempDir(), "broken.csv")
	if err := os.WriteFile(path, []byte("name,number\nalice,+15550000001\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, _, err := runCLI(t, configPath, "", "import", path)
	if err == nil || !strings.Contains(err.Error(), "import rejected") {
		t.Fatalf("expected malformed file rejection, got %v", err)
	}
}

func TestImportRequiresKnownFormat(t *testing.T) {
	configPath := setupCLI(t)
	_, _, err := runCLI(t, configPath, "", "import", "clients.txt")
	if err == nil || !strings.Contains(err.Error(), "pass --format") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestHealthReportsHealthyDatabase(t *testing.T) {
	configPath := setupCLI(t)

	out, _, err := runCLI(t, configPath, "", "health")
	if err != nil {
		t.Fatalf("health: %v\n%s", err, out)
	}
	for _, want := range []string{"Integrity check: yes", "Missing columns: none", "Data directory: ok"} {
		if !strings.Contains(out, want) {
			t.Fatalf("health output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigValidateAndShow(t *testing.T) {
	configPath := setupCLI(t)

	out, _, err := runCLI(t, configPath, "", "config", "validate")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output: %q", out)
	}

	t.Setenv(config.APITokenEnv, "secret-token")
	out, _, err = runCLI(t, configPath, "", "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.Contains(out, "secret-token") || !strings.Contains(out, "<redacted>") {
		t.Fatalf("token not redacted: %q", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, filepath.Join(t.TempDir(), "missing.toml"), "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("init output missing path: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	_, _, err = runCLI(t, filepath.Join(t.TempDir(), "missing.toml"), "", "config", "init", "--path", target)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}
}

func TestLoadDotEnvIgnoresMissingFile(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
}

func TestLoadDotEnvSetsVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CLIENTBOOK_DOTENV_TEST=loaded\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("CLIENTBOOK_DOTENV_TEST") })
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv("CLIENTBOOK_DOTENV_TEST"); got != "loaded" {
		t.Fatalf("expected variable from .env, got %q", got)
	}
}
