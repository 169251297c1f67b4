package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rainsave/rainsave/internal/config"
	"github.com/rainsave/rainsave/internal/logging"
	"github.com/rainsave/rainsave/internal/types"
)

// fakeClient implements ControllerClient and records every write call.
type fakeClient struct {
	host       string
	apiVersion string

	versionDoc  map[string]json.RawMessage
	nameDoc     map[string]json.RawMessage
	cloudDoc    map[string]json.RawMessage
	zonesDoc    map[string]json.RawMessage
	programsDoc map[string]json.RawMessage

	versionErr  error
	authErr     error
	zonesErr    error
	setNameErr  error
	setZonesErr error

	authenticated bool
	setNames      []string
	setClouds     []json.RawMessage
	zoneWrites    []int64
	programWrites []int64
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		host:        "192.168.1.50",
		apiVersion:  "4",
		versionDoc:  map[string]json.RawMessage{"apiVersion": json.RawMessage(`"4"`)},
		nameDoc:     map[string]json.RawMessage{"name": json.RawMessage(`"Sprinkler1"`)},
		cloudDoc:    map[string]json.RawMessage{},
		zonesDoc:    map[string]json.RawMessage{},
		programsDoc: map[string]json.RawMessage{},
	}
}

func (f *fakeClient) Version(ctx context.Context) (map[string]json.RawMessage, error) {
	if f.versionErr != nil {
		return nil, f.versionErr
	}
	return f.versionDoc, nil
}

func (f *fakeClient) Authenticate(ctx context.Context) error {
	if f.authErr != nil {
		return f.authErr
	}
	f.authenticated = true
	return nil
}

func (f *fakeClient) ProvisionName(ctx context.Context) (map[string]json.RawMessage, error) {
	return f.nameDoc, nil
}

func (f *fakeClient) ProvisionCloud(ctx context.Context) (map[string]json.RawMessage, error) {
	return f.cloudDoc, nil
}

func (f *fakeClient) ZoneProperties(ctx context.Context) (map[string]json.RawMessage, error) {
	if f.zonesErr != nil {
		return nil, f.zonesErr
	}
	return f.zonesDoc, nil
}

func (f *fakeClient) Programs(ctx context.Context) (map[string]json.RawMessage, error) {
	return f.programsDoc, nil
}

func (f *fakeClient) SetProvisionName(ctx context.Context, name string) error {
	if f.setNameErr != nil {
		return f.setNameErr
	}
	f.setNames = append(f.setNames, name)
	return nil
}

func (f *fakeClient) SetProvisionCloud(ctx context.Context, cloud json.RawMessage) error {
	f.setClouds = append(f.setClouds, cloud)
	return nil
}

func (f *fakeClient) SetZoneProperties(ctx context.Context, uid int64, properties json.RawMessage) error {
	if f.setZonesErr != nil {
		return f.setZonesErr
	}
	f.zoneWrites = append(f.zoneWrites, uid)
	return nil
}

func (f *fakeClient) SetProgram(ctx context.Context, uid int64, program json.RawMessage) error {
	f.programWrites = append(f.programWrites, uid)
	return nil
}

func (f *fakeClient) Host() string       { return f.host }
func (f *fakeClient) APIVersion() string { return f.apiVersion }

// fakeUI approves or declines without a terminal.
type fakeUI struct {
	confirm      bool
	passphrase   string
	shownPlans   []*RestorePlan
	confirmCalls int
	results      []error
}

func (u *fakeUI) ShowRestorePlan(plan *RestorePlan) error {
	u.shownPlans = append(u.shownPlans, plan)
	return nil
}

func (u *fakeUI) ConfirmRestore(plan *RestorePlan) (bool, error) {
	u.confirmCalls++
	return u.confirm, nil
}

func (u *fakeUI) ShowRestoreResult(plan *RestorePlan, applyErr error) error {
	u.results = append(u.results, applyErr)
	return nil
}

func (u *fakeUI) ReadPassphrase(ctx context.Context, prompt string, confirm bool) (string, error) {
	return u.passphrase, nil
}

func newTestLogger() (*logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logging.New(types.LogLevelDebug, false)
	logger.SetOutput(&buf)
	return logger, &buf
}

func newBackupConfig(file string) *config.Config {
	return &config.Config{
		Host:           "192.168.1.50",
		Port:           443,
		Password:       "secret",
		VerifyTLS:      true,
		TimeoutSeconds: 15,
		Backup:         true,
		File:           file,
	}
}

func newRestoreConfig(file string) *config.Config {
	cfg := newBackupConfig(file)
	cfg.Backup = false
	cfg.Restore = true
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, client ControllerClient, ui WorkflowUI) (*Orchestrator, *bytes.Buffer) {
	t.Helper()
	logger, buf := newTestLogger()
	return New(cfg, logger, client, ui, nil), buf
}
