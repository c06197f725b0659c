// Package storage persists ledger snapshots and the event journal as JSON
// files. The core ledger never touches it; the service layer snapshots after
// each mutation and recovers from the latest snapshot on startup.
package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"voting-ledger/ledger"
	"voting-ledger/models"
)

// Nanosecond precision so back-to-back snapshots get distinct filenames.
const snapshotTimeLayout = "20060102150405.000000000"

type SnapshotStore struct {
	dataDir string
	keep    int
	mutex   sync.RWMutex
}

// Helper struct for file sorting.
type snapshotFile struct {
	path      string
	timestamp time.Time
}

type snapshotFiles []snapshotFile

func (f snapshotFiles) Len() int           { return len(f) }
func (f snapshotFiles) Less(i, j int) bool { return f[i].timestamp.Before(f[j].timestamp) }
func (f snapshotFiles) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }

// New creates the data directory if needed. keep is the number of snapshot
// files retained after each save.
func New(dataDir string, keep int) (*SnapshotStore, error) {
	absPath, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %v", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	if keep < 1 {
		keep = 1
	}

	return &SnapshotStore{
		dataDir: absPath,
		keep:    keep,
	}, nil
}

// SaveSnapshot writes a timestamped snapshot file and prunes old ones.
func (s *SnapshotStore) SaveSnapshot(snapshot *ledger.Snapshot) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	timestamp := time.Now().Format(snapshotTimeLayout)
	filename := filepath.Join(s.dataDir, fmt.Sprintf("ledger_snapshot_%s.json", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %v", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode snapshot: %v", err)
	}

	if err := s.cleanupOldFiles("ledger_snapshot_*.json", s.keep); err != nil {
		log.Printf("Warning: Failed to cleanup old snapshot files: %v", err)
	}

	return nil
}

// LoadLatestSnapshot returns the most recent snapshot, or nil if none exists.
func (s *SnapshotStore) LoadLatestSnapshot() (*ledger.Snapshot, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	latestFile, err := s.getLatestFile("ledger_snapshot_*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot file: %v", err)
	}

	if latestFile == "" {
		return nil, nil
	}

	file, err := os.Open(latestFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %v", latestFile, err)
	}
	defer file.Close()

	var snapshot ledger.Snapshot
	if err := json.NewDecoder(file).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot from %s: %v", latestFile, err)
	}

	log.Printf("Loaded ledger snapshot from %s", latestFile)
	return &snapshot, nil
}

// SaveJournal writes the event journal atomically via temp file + rename.
func (s *SnapshotStore) SaveJournal(events []models.Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	path := filepath.Join(s.dataDir, "journal.json")

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %v", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write journal file: %v", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save journal file: %v", err)
	}

	return nil
}

// LoadJournal returns the persisted event journal, empty if none exists.
func (s *SnapshotStore) LoadJournal() ([]models.Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	path := filepath.Join(s.dataDir, "journal.json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make([]models.Event, 0), nil
		}
		return nil, fmt.Errorf("failed to read journal file: %v", err)
	}

	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal: %v", err)
	}

	return events, nil
}

// Helper function to get the latest file from a pattern.
func (s *SnapshotStore) getLatestFile(pattern string) (string, error) {
	files, err := s.collectFiles(pattern)
	if err != nil {
		return "", err
	}

	if len(files) == 0 {
		return "", nil
	}

	sort.Sort(files)
	return files[len(files)-1].path, nil
}

func (s *SnapshotStore) cleanupOldFiles(pattern string, keep int) error {
	files, err := s.collectFiles(pattern)
	if err != nil {
		return err
	}

	if len(files) <= keep {
		return nil
	}

	sort.Sort(files)

	for i := 0; i < len(files)-keep; i++ {
		if err := os.Remove(files[i].path); err != nil {
			log.Printf("Warning: Failed to remove old file %s: %v", files[i].path, err)
		}
	}

	return nil
}

func (s *SnapshotStore) collectFiles(pattern string) (snapshotFiles, error) {
	paths, err := filepath.Glob(filepath.Join(s.dataDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %v", err)
	}

	var files snapshotFiles
	for _, path := range paths {
		// Filenames look like ledger_snapshot_<timestamp>.json.
		base := filepath.Base(path)
		parts := strings.Split(base, "_")
		if len(parts) < 3 {
			continue
		}
		timestampStr := strings.TrimSuffix(parts[len(parts)-1], ".json")
		timestamp, err := time.Parse(snapshotTimeLayout, timestampStr)
		if err != nil {
			log.Printf("Warning: Invalid timestamp in filename %s: %v", base, err)
			continue
		}
		files = append(files, snapshotFile{
			path:      path,
			timestamp: timestamp,
		})
	}

	return files, nil
}
