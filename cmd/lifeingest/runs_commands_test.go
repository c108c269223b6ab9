package main

import (
	"encoding/json"
	"testing"

	"lifeingest/internal/history"
)

func TestRunsListShowAndPrune(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	archive := env.writeArchive(t, "A.zip")
	if _, _, err := runCLI(t, []string{"ingest", archive}, env.configPath); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	out, _, err = runCLI(t, []string{"--json", "runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs --json: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].Events != 1 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	id := runs[0].ID

	out, _, err = runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, shortID(id))
	requireContains(t, out, "Succeeded")

	out, _, err = runCLI(t, []string{"runs", "show", id[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, out, "id: "+id)
	requireContains(t, out, "name: A.zip")

	out, _, err = runCLI(t, []string{"runs", "show", id, "--format", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("runs show --format json: %v", err)
	}
	var detail history.RunDetail
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if len(detail.Results) != 1 || len(detail.Results[0].Entries) != 2 {
		t.Fatalf("unexpected detail: %+v", detail.Results)
	}

	if _, _, err := runCLI(t, []string{"runs", "show", "does-not-exist"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown run")
	}

	out, _, err = runCLI(t, []string{"runs", "prune", "--older-than", "0s"}, env.configPath)
	if err != nil {
		t.Fatalf("runs prune: %v", err)
	}
	requireContains(t, out, "Removed 1 runs")
}
