package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"labelsheet/internal/config"
	"labelsheet/internal/journal"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	content := fmt.Sprintf(
		"[paths]\njournal_dir = %q\nlog_dir = %q\ncache_dir = %q\n\n[platform]\napi_key = \"secret-key-123\"\n",
		filepath.Join(base, "journal"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "cache"),
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got %q", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}

func TestConfigShowRedactsAPIKey(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, []string{"config", "show"}, configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "secret-key-123") {
		t.Fatalf("API key leaked into output: %q", out)
	}
	requireContains(t, out, "<redacted>")
	requireContains(t, out, "journal_dir")
}

func TestIndexCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	ontologyJSON := `{
		"tools": [
			{
				"name": "car", "tool": "rectangle", "featureSchemaId": "fs-car",
				"classifications": [
					{
						"instructions": "damaged", "type": "radio", "featureSchemaId": "fs-damaged",
						"options": [
							{"label": "yes", "featureSchemaId": "fs-yes"},
							{"label": "no", "featureSchemaId": "fs-no"}
						]
					}
				]
			}
		]
	}`
	ontologyPath := filepath.Join(t.TempDir(), "ontology.json")
	if err := os.WriteFile(ontologyPath, []byte(ontologyJSON), 0o644); err != nil {
		t.Fatalf("write ontology: %v", err)
	}

	out, _, err := runCLI(t, []string{"index", "--ontology", ontologyPath, "--inverse", "--detailed"}, configPath)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	requireContains(t, out, "car///damaged///yes")
	requireContains(t, out, "leaf_option")

	out, _, err = runCLI(t, []string{"index", "--ontology", ontologyPath, "--inverse", "--json"}, configPath)
	if err != nil {
		t.Fatalf("index --json: %v", err)
	}
	requireContains(t, out, `"car///damaged///yes": "fs-yes"`)
}

func TestIndexCommandRejectsMissingFile(t *testing.T) {
	configPath := writeTestConfig(t)

	_, _, err := runCLI(t, []string{"index", "--ontology", "/nonexistent/ontology.json"}, configPath)
	if err == nil {
		t.Fatal("expected error for missing ontology file")
	}
}

func TestStatusCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status on empty journal: %v", err)
	}
	requireContains(t, out, "Journal is empty")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	ctx := context.Background()
	batch, err := store.NewBatch(ctx, journal.KindDataRows, "ds-1", "run-data-rows-1", 1, 10)
	if err != nil {
		t.Fatalf("new batch: %v", err)
	}
	if err := store.SetStatus(ctx, batch.ID, journal.StatusFailed, "quota exceeded"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}

	out, _, err = runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "failed")
	requireContains(t, out, "quota exceeded")
}
