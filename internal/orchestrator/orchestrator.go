package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rainsave/rainsave/internal/api"
	"github.com/rainsave/rainsave/internal/config"
	"github.com/rainsave/rainsave/internal/logging"
	"github.com/rainsave/rainsave/internal/metrics"
	"github.com/rainsave/rainsave/internal/storage"
	"github.com/rainsave/rainsave/internal/types"
)

// ControllerClient is the API surface the workflows need from a controller.
// api.Client satisfies it; tests substitute recording fakes.
type ControllerClient interface {
	Version(ctx context.Context) (map[string]json.RawMessage, error)
	Authenticate(ctx context.Context) error
	ProvisionName(ctx context.Context) (map[string]json.RawMessage, error)
	ProvisionCloud(ctx context.Context) (map[string]json.RawMessage, error)
	ZoneProperties(ctx context.Context) (map[string]json.RawMessage, error)
	Programs(ctx context.Context) (map[string]json.RawMessage, error)
	SetProvisionName(ctx context.Context, name string) error
	SetProvisionCloud(ctx context.Context, cloud json.RawMessage) error
	SetZoneProperties(ctx context.Context, uid int64, properties json.RawMessage) error
	SetProgram(ctx context.Context, uid int64, program json.RawMessage) error
	Host() string
	APIVersion() string
}

// FileError wraps a filesystem failure during backup or restore.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ParseError wraps a malformed backup document.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse backup file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EncryptionError wraps an age encryption or decryption failure.
type EncryptionError struct {
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("encryption error: %v", e.Err)
}

func (e *EncryptionError) Unwrap() error {
	return e.Err
}

// ErrRestoreAborted is returned when the operator declines the restore plan.
var ErrRestoreAborted = errors.New("restore aborted by operator")

// Orchestrator drives one backup or restore run end to end.
type Orchestrator struct {
	cfg    *config.Config
	log    *logging.Logger
	client ControllerClient
	ui     WorkflowUI
	store  *storage.LocalStore

	exporter *metrics.Exporter
}

// New wires an orchestrator from its collaborators. store may be nil when no
// backup_path is configured.
func New(cfg *config.Config, log *logging.Logger, client ControllerClient, ui WorkflowUI, store *storage.LocalStore) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		log:    log,
		client: client,
		ui:     ui,
		store:  store,
	}
}

// SetExporter enables Prometheus textfile metrics after a successful backup.
func (o *Orchestrator) SetExporter(exporter *metrics.Exporter) {
	o.exporter = exporter
}

// Run executes the configured workflow and maps any failure onto an exit code.
func (o *Orchestrator) Run(ctx context.Context) (types.ExitCode, error) {
	var err error
	switch {
	case o.cfg.Restore:
		err = o.runRestore(ctx)
	default:
		err = o.runBackup(ctx)
	}
	if err != nil {
		return classifyError(err), err
	}
	return types.ExitSuccess, nil
}

// classifyError maps a workflow failure onto the exit code taxonomy.
func classifyError(err error) types.ExitCode {
	var authErr *api.AuthError
	var apiErr *api.APIError
	var devErr *api.DeviceError
	var reqErr *api.RequestError
	var fileErr *FileError
	var parseErr *ParseError
	var encErr *EncryptionError

	switch {
	case errors.As(err, &authErr):
		return types.ExitAuthError
	case errors.As(err, &parseErr):
		return types.ExitParseError
	case errors.As(err, &encErr):
		return types.ExitEncryptionError
	case errors.As(err, &fileErr):
		return types.ExitFileError
	case errors.As(err, &apiErr), errors.As(err, &devErr), errors.As(err, &reqErr), errors.Is(err, api.ErrNotAuthenticated):
		return types.ExitAPIError
	case errors.Is(err, ErrRestoreAborted):
		return types.ExitSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return types.ExitAPIError
	default:
		return types.ExitGenericError
	}
}
