// Package storage keeps finished run records on disk: one directory per
// run holding metadata.json and series.csv.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/metrics"
	"github.com/san-kum/dotsim/internal/particle"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	seriesFile   = "series.csv"
	configFile   = "config.yaml"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      uint64             `json:"seed"`
	Mode      string             `json:"mode"`
	Particles int                `json:"particles"`
	Duration  float64            `json:"duration"`
	Epochs    int                `json:"epochs"`
	Final     particle.Counts    `json:"final"`
	Metrics   map[string]float64 `json:"metrics"`

	// Config is stored next to the metadata as config.yaml.
	Config *config.Config `json:"-"`
}

// Save writes a new run directory and returns its id. Empty ID and
// Timestamp fields are filled in.
func (s *Store) Save(meta RunMetadata, samples []metrics.Sample) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.Name == "" {
		meta.Name = "run"
	}
	if err := s.Init(); err != nil {
		return "", err
	}

	base := meta.ID
	if base == "" {
		base = fmt.Sprintf("%s_%s_s%d", meta.Name, meta.Timestamp.Format("20060102-150405"), meta.Seed)
	}
	runID, runDir, err := s.reserve(base)
	if err != nil {
		return "", err
	}
	meta.ID = runID

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if meta.Config != nil {
		if err := config.Save(filepath.Join(runDir, configFile), meta.Config); err != nil {
			return "", fmt.Errorf("write config: %w", err)
		}
	}

	csvFile, err := os.Create(filepath.Join(runDir, seriesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if samples == nil {
		samples = []metrics.Sample{}
	}
	if err := gocsv.MarshalFile(samples, csvFile); err != nil {
		return "", fmt.Errorf("write series: %w", err)
	}
	return runID, nil
}

// reserve creates a fresh directory for base, suffixing it on collision.
func (s *Store) reserve(base string) (string, string, error) {
	id := base
	for i := 1; ; i++ {
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", err
		}
		id = fmt.Sprintf("%s-%d", base, i)
	}
}

// List returns every readable run, oldest first. Directories without a
// valid metadata.json are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", runID, err)
	}

	cfg, err := config.Load(filepath.Join(s.baseDir, runID, configFile))
	switch {
	case err == nil:
		meta.Config = cfg
	case !os.IsNotExist(err):
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadSeries(runID string) ([]metrics.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, seriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	var samples []metrics.Sample
	if err := gocsv.UnmarshalFile(file, &samples); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []metrics.Sample{}, nil
		}
		return nil, fmt.Errorf("decode %s series: %w", runID, err)
	}
	return samples, nil
}

// Latest returns the id of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("%w: no runs in %s", ErrRunNotFound, s.baseDir)
	}
	return runs[len(runs)-1].ID, nil
}
