package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rainsave/rainsave/internal/api"
	"github.com/rainsave/rainsave/internal/types"
)

const sampleSnapshot = `{
  "cloud": {
    "enabled": true,
    "email": "owner@example.com"
  },
  "host": "192.168.1.50",
  "name": "Sprinkler1",
  "programs": [
    {"uid": 5, "name": "Morning"}
  ],
  "version": {
    "apiVersion": "4"
  },
  "zones": [
    {"uid": 1, "name": "Front Lawn"},
    {"uid": 2, "name": "Back Lawn"}
  ]
}
`

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func TestRestoreAppliesSnapshot(t *testing.T) {
	path := writeSnapshot(t, sampleSnapshot)
	client := newFakeClient()
	ui := &fakeUI{confirm: true}

	orch, _ := newTestOrchestrator(t, newRestoreConfig(path), client, ui)
	code, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if code != types.ExitSuccess {
		t.Fatalf("exit code = %v, want success", code)
	}

	if !client.authenticated {
		t.Error("client should have authenticated before writing")
	}
	if len(client.setNames) != 1 || client.setNames[0] != "Sprinkler1" {
		t.Errorf("setNames = %v, want [Sprinkler1]", client.setNames)
	}
	if len(client.setClouds) != 1 {
		t.Errorf("setClouds = %d calls, want 1", len(client.setClouds))
	}
	if len(client.zoneWrites) != 2 || client.zoneWrites[0] != 1 || client.zoneWrites[1] != 2 {
		t.Errorf("zoneWrites = %v, want [1 2]", client.zoneWrites)
	}
	if len(client.programWrites) != 1 || client.programWrites[0] != 5 {
		t.Errorf("programWrites = %v, want [5]", client.programWrites)
	}
	if len(ui.results) != 1 || ui.results[0] != nil {
		t.Errorf("results = %v, want one successful result", ui.results)
	}
}

func TestRestoreReportsApplyFailure(t *testing.T) {
	path := writeSnapshot(t, sampleSnapshot)
	client := newFakeClient()
	client.setZonesErr = &api.DeviceError{Endpoint: "/zone/1/properties", StatusCode: 2, Message: "zone does not exist"}
	ui := &fakeUI{confirm: true}

	orch, _ := newTestOrchestrator(t, newRestoreConfig(path), client, ui)
	code, err := orch.Run(context.Background())
	var devErr *api.DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("expected DeviceError, got %v", err)
	}
	if code != types.ExitAPIError {
		t.Fatalf("exit code = %v, want API error", code)
	}

	if len(ui.results) != 1 {
		t.Fatalf("expected 1 restore result, got %d", len(ui.results))
	}
	if !errors.As(ui.results[0], &devErr) {
		t.Errorf("result should carry the write failure, got %v", ui.results[0])
	}
}

func TestRestorePlanContents(t *testing.T) {
	path := writeSnapshot(t, sampleSnapshot)
	ui := &fakeUI{confirm: true}

	orch, _ := newTestOrchestrator(t, newRestoreConfig(path), newFakeClient(), ui)
	if _, err := orch.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(ui.shownPlans) != 1 {
		t.Fatalf("expected 1 shown plan, got %d", len(ui.shownPlans))
	}
	plan := ui.shownPlans[0]
	if plan.Name != "Sprinkler1" || !plan.HasCloud || plan.Zones != 2 || plan.Programs != 1 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.SourceFile != path {
		t.Fatalf("plan source = %q, want %q", plan.SourceFile, path)
	}
}

func TestRestoreDeclinedTouchesNothing(t *testing.T) {
	path := writeSnapshot(t, sampleSnapshot)
	client := newFakeClient()
	ui := &fakeUI{confirm: false}

	orch, buf := newTestOrchestrator(t, newRestoreConfig(path), client, ui)
	code, err := orch.Run(context.Background())
	if !errors.Is(err, ErrRestoreAborted) {
		t.Fatalf("expected ErrRestoreAborted, got %v", err)
	}
	if code != types.ExitSuccess {
		t.Fatalf("declining is not a failure, exit code = %v", code)
	}

	if client.authenticated {
		t.Error("declined restore must not authenticate")
	}
	if len(client.setNames)+len(client.setClouds)+len(client.zoneWrites)+len(client.programWrites) != 0 {
		t.Error("declined restore must not write anything")
	}
	if !strings.Contains(buf.String(), "aborted") {
		t.Errorf("log should mention the abort: %s", buf.String())
	}
}

func TestRestoreMissingFile(t *testing.T) {
	cfg := newRestoreConfig(filepath.Join(t.TempDir(), "absent.json"))
	orch, _ := newTestOrchestrator(t, cfg, newFakeClient(), &fakeUI{confirm: true})

	code, err := orch.Run(context.Background())
	var fileErr *FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("expected FileError, got %v", err)
	}
	if code != types.ExitFileError {
		t.Fatalf("exit code = %v, want file error", code)
	}
}

func TestRestoreBadJSON(t *testing.T) {
	path := writeSnapshot(t, "{not json")
	orch, _ := newTestOrchestrator(t, newRestoreConfig(path), newFakeClient(), &fakeUI{confirm: true})

	code, err := orch.Run(context.Background())
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if code != types.ExitParseError {
		t.Fatalf("exit code = %v, want parse error", code)
	}
}

func TestRestoreRejectsEmptyDocument(t *testing.T) {
	path := writeSnapshot(t, `{"host": "192.168.1.50"}`)
	orch, _ := newTestOrchestrator(t, newRestoreConfig(path), newFakeClient(), &fakeUI{confirm: true})

	_, err := orch.Run(context.Background())
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError for document without sections, got %v", err)
	}
}

func TestRestoreRejectsMissingUID(t *testing.T) {
	path := writeSnapshot(t, `{"zones": [{"name": "no uid"}]}`)
	orch, _ := newTestOrchestrator(t, newRestoreConfig(path), newFakeClient(), &fakeUI{confirm: true})

	_, err := orch.Run(context.Background())
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError for zone without uid, got %v", err)
	}
	if !strings.Contains(err.Error(), "uid") {
		t.Fatalf("error should mention the missing uid: %v", err)
	}
}

func TestRestoreDefaultFileIsHostJSON(t *testing.T) {
	cfg := newRestoreConfig("")
	orch, _ := newTestOrchestrator(t, cfg, newFakeClient(), &fakeUI{})

	_, err := orch.resolveRestorePath()
	var fileErr *FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("expected FileError, got %v", err)
	}
	if fileErr.Path != "192.168.1.50.json" {
		t.Fatalf("default restore path = %q, want 192.168.1.50.json", fileErr.Path)
	}
}

func TestResolveRestorePathAgeFallback(t *testing.T) {
	tmp := t.TempDir()
	plain := filepath.Join(tmp, "snap.json")
	if err := os.WriteFile(plain+".age", []byte("ciphertext"), 0600); err != nil {
		t.Fatalf("write age file: %v", err)
	}

	orch, _ := newTestOrchestrator(t, newRestoreConfig(plain), newFakeClient(), &fakeUI{})
	got, err := orch.resolveRestorePath()
	if err != nil {
		t.Fatalf("resolveRestorePath error: %v", err)
	}
	if got != plain+".age" {
		t.Fatalf("path = %q, want %q", got, plain+".age")
	}
}

func TestRestoreWarnsOnHostMismatch(t *testing.T) {
	path := writeSnapshot(t, strings.Replace(sampleSnapshot, "192.168.1.50", "10.0.0.9", 1))
	ui := &fakeUI{confirm: true}

	orch, buf := newTestOrchestrator(t, newRestoreConfig(path), newFakeClient(), ui)
	if _, err := orch.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !strings.Contains(buf.String(), "10.0.0.9") {
		t.Errorf("log should warn about the source host: %s", buf.String())
	}
}
