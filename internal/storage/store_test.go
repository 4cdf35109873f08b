package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/metrics"
	"github.com/san-kum/dotsim/internal/particle"
)

func sampleSeries() []metrics.Sample {
	return []metrics.Sample{
		{Time: 0.3, Epoch: 1, Susceptible: 9, Asymptomatic: 1, Acceptance: 0.5},
		{Time: 0.6, Epoch: 2, Susceptible: 8, Asymptomatic: 1, Infected: 1, Acceptance: 0.25, Kinetic: 1.5},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	cfg := config.DefaultConfig()
	cfg.Seed = 42
	meta := RunMetadata{
		Name:      "outbreak",
		Seed:      42,
		Mode:      cfg.Mode,
		Particles: 10,
		Duration:  0.6,
		Epochs:    2,
		Final:     particle.Counts{Susceptible: 8, Asymptomatic: 1, Infected: 1},
		Metrics:   map[string]float64{"peak_active": 0.2},
		Config:    cfg,
	}

	runID, err := st.Save(meta, sampleSeries())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "outbreak_") {
		t.Errorf("unexpected run id %q", runID)
	}

	got, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.ID != runID || got.Seed != 42 || got.Final != meta.Final {
		t.Errorf("metadata mismatch: %+v", got)
	}
	if got.Metrics["peak_active"] != 0.2 {
		t.Errorf("expected peak_active 0.2, got %v", got.Metrics["peak_active"])
	}
	if got.Config == nil || got.Config.Seed != 42 {
		t.Errorf("config snapshot not restored: %+v", got.Config)
	}

	series, err := st.LoadSeries(runID)
	if err != nil {
		t.Fatalf("load series failed: %v", err)
	}
	if len(series) != 2 || series[1] != sampleSeries()[1] {
		t.Errorf("series mismatch: %+v", series)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(RunMetadata{Name: "gas", Config: config.DefaultConfig()}, nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "series.csv", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}

	series, err := st.LoadSeries(runID)
	if err != nil {
		t.Fatalf("empty series should load: %v", err)
	}
	if len(series) != 0 {
		t.Errorf("expected no samples, got %d", len(series))
	}
}

func TestStoreListAndLatest(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
	if _, err := st.Latest(); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}

	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	first, err := st.Save(RunMetadata{Name: "a", Timestamp: ts}, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.Save(RunMetadata{Name: "a", Timestamp: ts}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("run ids collided: %s", first)
	}
	third, err := st.Save(RunMetadata{Name: "b", Timestamp: ts.Add(time.Hour)}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Mkdir(filepath.Join(st.Dir(), "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	latest, err := st.Latest()
	if err != nil || latest != third {
		t.Errorf("latest = %q (%v), want %q", latest, err, third)
	}
}

func TestLoadMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadSeries("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestExport(t *testing.T) {
	var csvBuf bytes.Buffer
	if err := ExportCSV(&csvBuf, sampleSeries()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(csvBuf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "time,epoch,susceptible") {
		t.Errorf("unexpected csv:\n%s", csvBuf.String())
	}

	var jsonBuf bytes.Buffer
	if err := ExportJSON(&jsonBuf, RunMetadata{ID: "x"}, sampleSeries()); err != nil {
		t.Fatal(err)
	}
	var decoded ExportData
	if err := json.Unmarshal(jsonBuf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Run.ID != "x" || len(decoded.Samples) != 2 {
		t.Errorf("unexpected export: %+v", decoded)
	}
}
