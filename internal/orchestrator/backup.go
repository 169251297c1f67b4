package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rainsave/rainsave/internal/metrics"
	"github.com/rainsave/rainsave/internal/version"
	"github.com/rainsave/rainsave/pkg/utils"
)

// snapshotTimeFormat names timestamped snapshots under backup_path.
const snapshotTimeFormat = "20060102-150405"

// runBackup fetches the controller state and writes it as one JSON document.
// Nothing is written until every fetch succeeded, so a failed run never
// leaves a truncated snapshot behind.
func (o *Orchestrator) runBackup(ctx context.Context) error {
	start := time.Now()

	o.log.Step("Contacting controller %s", o.cfg.Host)
	versionDoc, err := o.client.Version(ctx)
	if err != nil {
		return err
	}
	o.log.Info("Controller reports API version %s", o.client.APIVersion())

	o.log.Step("Authenticating")
	if err := o.client.Authenticate(ctx); err != nil {
		return err
	}

	o.log.Step("Fetching controller state")
	nameDoc, err := o.client.ProvisionName(ctx)
	if err != nil {
		return err
	}
	cloudDoc, err := o.client.ProvisionCloud(ctx)
	if err != nil {
		return err
	}
	zonesDoc, err := o.client.ZoneProperties(ctx)
	if err != nil {
		return err
	}
	programsDoc, err := o.client.Programs(ctx)
	if err != nil {
		return err
	}

	doc, err := buildDocument(o.cfg.Host, versionDoc, nameDoc, cloudDoc, zonesDoc, programsDoc)
	if err != nil {
		return err
	}

	data, err := EncodeDocument(doc)
	if err != nil {
		return err
	}

	path := o.resolveBackupPath(start)

	if o.cfg.EncryptBackup {
		o.log.Step("Encrypting snapshot")
		encrypted, err := o.encryptSnapshot(ctx, data)
		if err != nil {
			return err
		}
		data = encrypted
		path += ".age"
	}

	o.log.Step("Writing snapshot to %s", path)
	if err := writeFileAtomic(path, data, 0600); err != nil {
		return &FileError{Op: "write", Path: path, Err: err}
	}

	checksum, err := utils.ComputeSHA256(path)
	if err != nil {
		return &FileError{Op: "checksum", Path: path, Err: err}
	}
	sidecar := path + ".sha256"
	sidecarLine := fmt.Sprintf("%s  %s\n", checksum, filepath.Base(path))
	if err := writeFileAtomic(sidecar, []byte(sidecarLine), 0600); err != nil {
		return &FileError{Op: "write", Path: sidecar, Err: err}
	}

	written, err := utils.GetFileSize(path)
	if err != nil {
		return &FileError{Op: "stat", Path: path, Err: err}
	}

	if o.store != nil {
		if o.cfg.MaxBackups > 0 {
			if err := o.store.ApplyRetention(o.cfg.MaxBackups); err != nil {
				// Retention failures do not invalidate the snapshot just written.
				o.log.Warning("Retention cleanup failed: %v", err)
			}
		}
		o.logStoreSummary()
	}

	zoneCount := countArray(doc["zones"])
	programCount := countArray(doc["programs"])
	o.log.Info("Backup complete: %d zones, %d programs, %d bytes", zoneCount, programCount, written)

	if o.exporter != nil {
		m := metrics.BackupMetrics{
			Hostname:      o.cfg.Host,
			APIVersion:    o.client.APIVersion(),
			ScriptVersion: version.String(),
			StartTime:     start,
			EndTime:       time.Now(),
			ExitCode:      0,
			ErrorCount:    o.log.ErrorCount(),
			WarningCount:  o.log.WarningCount(),
			DocumentBytes: int(written),
			Zones:         zoneCount,
			Programs:      programCount,
		}
		if err := o.exporter.WriteBackupMetrics(m); err != nil {
			o.log.Warning("Cannot write metrics: %v", err)
		}
	}

	return nil
}

// logStoreSummary reports what the snapshot directory holds after retention.
func (o *Orchestrator) logStoreSummary() {
	snapshots, err := o.store.List()
	if err != nil {
		o.log.Warning("Cannot list snapshot store: %v", err)
		return
	}
	if len(snapshots) == 0 {
		return
	}

	var totalBytes int64
	encrypted := 0
	for _, snapshot := range snapshots {
		totalBytes += snapshot.Size
		if snapshot.Encrypted {
			encrypted++
		}
	}
	o.log.Info("Store %s holds %d snapshots, %d encrypted, %d bytes total", o.store.Dir(), len(snapshots), encrypted, totalBytes)

	if latest := snapshots[0]; latest.Checksum != "" {
		o.log.Debug("Latest snapshot %s sha256 %s", filepath.Base(latest.Path), latest.Checksum)
	}
}

// resolveBackupPath decides where the snapshot goes. An explicit --file wins;
// otherwise backup_path gets a timestamped name and the bare default is
// <host>.json in the working directory.
func (o *Orchestrator) resolveBackupPath(now time.Time) string {
	if o.cfg.File != "" {
		return o.cfg.File
	}
	if o.cfg.BackupPath != "" {
		name := fmt.Sprintf("%s-%s.json", o.cfg.Host, now.Format(snapshotTimeFormat))
		return filepath.Join(o.cfg.BackupPath, name)
	}
	return o.cfg.Host + ".json"
}

// buildDocument merges the individual API responses into one snapshot
// document. Later sections overwrite earlier keys on collision.
func buildDocument(host string, versionDoc, nameDoc, cloudDoc, zonesDoc, programsDoc map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)

	hostRaw, err := json.Marshal(host)
	if err != nil {
		return nil, err
	}
	doc["host"] = hostRaw

	versionRaw, err := json.Marshal(versionDoc)
	if err != nil {
		return nil, err
	}
	doc["version"] = versionRaw

	if nameRaw, ok := nameDoc["name"]; ok {
		doc["name"] = nameRaw
	}

	cloudRaw, err := json.Marshal(cloudDoc)
	if err != nil {
		return nil, err
	}
	doc["cloud"] = cloudRaw

	for key, value := range zonesDoc {
		doc[key] = value
	}
	for key, value := range programsDoc {
		doc[key] = value
	}

	return doc, nil
}

// EncodeDocument renders a snapshot document with sorted keys, two-space
// indentation and a trailing newline, so repeated backups of an unchanged
// controller diff clean.
func EncodeDocument(doc map[string]json.RawMessage) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot document: %w", err)
	}
	return append(data, '\n'), nil
}

func countArray(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return 0
	}
	return len(items)
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place, so readers never observe a partial snapshot.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
