package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rainsave/rainsave/internal/logging"
	"github.com/rainsave/rainsave/internal/types"
)

// LocalStore manages the snapshot directory: listing what is there and
// pruning old snapshots once a retention limit is configured.
type LocalStore struct {
	dir string
	log *logging.Logger
}

// NewLocalStore returns a store rooted at dir. The directory is created on
// first write, not here.
func NewLocalStore(dir string, log *logging.Logger) *LocalStore {
	return &LocalStore{dir: dir, log: log}
}

// Dir returns the snapshot directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// List returns the snapshots in the store, newest first. Checksum sidecars
// and unrelated files are not listed as snapshots.
func (s *LocalStore) List() ([]types.SnapshotInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading snapshot directory %s: %w", s.dir, err)
	}

	var snapshots []types.SnapshotInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !isSnapshotName(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(s.dir, name)
		snapshots = append(snapshots, types.SnapshotInfo{
			Path:      path,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			Checksum:  readChecksumSidecar(path),
			Encrypted: strings.HasSuffix(name, ".age"),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ModTime.After(snapshots[j].ModTime)
	})
	return snapshots, nil
}

// ApplyRetention deletes the oldest snapshots beyond maxBackups, together
// with their checksum sidecars.
func (s *LocalStore) ApplyRetention(maxBackups int) error {
	if maxBackups <= 0 {
		return nil
	}

	snapshots, err := s.List()
	if err != nil {
		return err
	}
	if len(snapshots) <= maxBackups {
		return nil
	}

	for _, snapshot := range snapshots[maxBackups:] {
		s.log.Info("Pruning old snapshot %s", snapshot.Path)
		if err := os.Remove(snapshot.Path); err != nil {
			return fmt.Errorf("removing %s: %w", snapshot.Path, err)
		}
		sidecar := snapshot.Path + ".sha256"
		if err := os.Remove(sidecar); err != nil && !os.IsNotExist(err) {
			s.log.Warning("Cannot remove checksum sidecar %s: %v", sidecar, err)
		}
	}
	return nil
}

func isSnapshotName(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.age")
}

// readChecksumSidecar returns the recorded checksum, or "" when the sidecar
// is absent or malformed.
func readChecksumSidecar(path string) string {
	data, err := os.ReadFile(path + ".sha256")
	if err != nil {
		return ""
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
