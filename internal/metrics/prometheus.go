package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rainsave/rainsave/internal/logging"
)

// BackupMetrics represents the subset of backup statistics exported as Prometheus metrics.
type BackupMetrics struct {
	Hostname      string
	APIVersion    string
	ScriptVersion string

	StartTime time.Time
	EndTime   time.Time

	ExitCode      int
	ErrorCount    int
	WarningCount  int
	DocumentBytes int
	Zones         int
	Programs      int
}

// Exporter writes backup metrics in Prometheus textfile format for node_exporter.
type Exporter struct {
	textfileDir string
	logger      *logging.Logger
}

// NewExporter creates a new Exporter using the provided directory.
func NewExporter(textfileDir string, logger *logging.Logger) *Exporter {
	return &Exporter{
		textfileDir: strings.TrimRight(textfileDir, "/"),
		logger:      logger,
	}
}

// WriteBackupMetrics writes the given metrics snapshot to rainsave_backup.prom in textfileDir.
func (e *Exporter) WriteBackupMetrics(m BackupMetrics) error {
	if e == nil {
		return nil
	}

	if e.textfileDir == "" {
		return fmt.Errorf("metrics textfile directory is empty")
	}

	if err := os.MkdirAll(e.textfileDir, 0o755); err != nil {
		return fmt.Errorf("create metrics directory %s: %w", e.textfileDir, err)
	}

	tmpPath := filepath.Join(e.textfileDir, "rainsave_backup.prom.tmp")
	finalPath := filepath.Join(e.textfileDir, "rainsave_backup.prom")

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create metrics file %s: %w", tmpPath, err)
	}
	defer f.Close()

	// Helper to write a single metric with HELP/TYPE
	writeMetric := func(name, mtype, help, value string) {
		fmt.Fprintf(f, "# HELP %s %s\n", name, help)
		fmt.Fprintf(f, "# TYPE %s %s\n", name, mtype)
		fmt.Fprintln(f, value)
	}

	startTs := float64(m.StartTime.Unix())
	endTs := float64(m.EndTime.Unix())
	duration := m.EndTime.Sub(m.StartTime).Seconds()
	if m.EndTime.IsZero() || m.EndTime.Before(m.StartTime) {
		endTs = startTs
		duration = 0
	}

	// Status gauge: 0=success, 1=warning, 2=error
	status := 0
	if m.ExitCode != 0 {
		status = 2
	} else if m.WarningCount > 0 {
		status = 1
	}

	writeMetric(
		"rainsave_backup_start_time_seconds",
		"gauge",
		"Unix timestamp of backup start",
		fmt.Sprintf("rainsave_backup_start_time_seconds %.0f", startTs),
	)

	writeMetric(
		"rainsave_backup_end_time_seconds",
		"gauge",
		"Unix timestamp of backup end",
		fmt.Sprintf("rainsave_backup_end_time_seconds %.0f", endTs),
	)

	writeMetric(
		"rainsave_backup_duration_seconds",
		"gauge",
		"Duration of last backup in seconds",
		fmt.Sprintf("rainsave_backup_duration_seconds %.2f", duration),
	)

	writeMetric(
		"rainsave_backup_exit_code",
		"gauge",
		"Exit code of last backup",
		fmt.Sprintf("rainsave_backup_exit_code %d", m.ExitCode),
	)

	writeMetric(
		"rainsave_backup_status",
		"gauge",
		"Status of last backup (0=success,1=warning,2=error)",
		fmt.Sprintf("rainsave_backup_status %d", status),
	)

	writeMetric(
		"rainsave_backup_errors_total",
		"gauge",
		"Total number of errors in last backup",
		fmt.Sprintf("rainsave_backup_errors_total %d", m.ErrorCount),
	)

	writeMetric(
		"rainsave_backup_warnings_total",
		"gauge",
		"Total number of warnings in last backup",
		fmt.Sprintf("rainsave_backup_warnings_total %d", m.WarningCount),
	)

	writeMetric(
		"rainsave_backup_document_bytes",
		"gauge",
		"Size of the last snapshot document in bytes",
		fmt.Sprintf("rainsave_backup_document_bytes %d", m.DocumentBytes),
	)

	writeMetric(
		"rainsave_backup_zones",
		"gauge",
		"Number of zones captured in the last snapshot",
		fmt.Sprintf("rainsave_backup_zones %d", m.Zones),
	)

	writeMetric(
		"rainsave_backup_programs",
		"gauge",
		"Number of programs captured in the last snapshot",
		fmt.Sprintf("rainsave_backup_programs %d", m.Programs),
	)

	// Static info metric with labels
	fmt.Fprintf(f, "# HELP rainsave_info Static information about this backup instance\n")
	fmt.Fprintf(f, "# TYPE rainsave_info gauge\n")
	fmt.Fprintf(
		f,
		"rainsave_info{hostname=%q,api_version=%q,script_version=%q} 1\n",
		m.Hostname,
		m.APIVersion,
		m.ScriptVersion,
	)

	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync metrics file %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rename metrics file to %s: %w", finalPath, err)
	}

	if e.logger != nil {
		e.logger.Debug("Prometheus metrics exported to %s", finalPath)
	}

	return nil
}
