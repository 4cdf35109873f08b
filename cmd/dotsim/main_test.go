package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/dotsim/internal/analysis"
	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/experiment"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestApplySets(t *testing.T) {
	tests := []struct {
		name    string
		kvs     []string
		wantErr bool
	}{
		{"empty", nil, false},
		{"single", []string{"fatality_probability=0.5"}, false},
		{"spaces", []string{" fatality_probability = 0.25 "}, false},
		{"missing equals", []string{"fatality_probability"}, true},
		{"not a number", []string{"fatality_probability=high"}, true},
		{"unknown", []string{"warp_factor=9"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := applySets(config.DefaultConfig(), tt.kvs)
			if (err != nil) != tt.wantErr {
				t.Errorf("applySets(%v) error = %v, wantErr %v", tt.kvs, err, tt.wantErr)
			}
		})
	}

	cfg := config.DefaultConfig()
	if err := applySets(cfg, []string{"fatality_probability=0.25"}); err != nil {
		t.Fatal(err)
	}
	if cfg.FatalityProbability != 0.25 {
		t.Errorf("FatalityProbability = %g", cfg.FatalityProbability)
	}

	err := applySets(cfg, []string{"a=1", "b=2"})
	if !errors.Is(err, experiment.ErrUnknownParam) {
		t.Errorf("joined error should wrap ErrUnknownParam, got %v", err)
	}
}

func TestInitConfigLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	if _, err := execute(t, "init-config", path, "--preset", "calm", "--seed", "9",
		"--set", "fatality_probability=0.125"); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := config.GetPreset("calm")
	if cfg.Seed != 9 {
		t.Errorf("seed = %d, want 9", cfg.Seed)
	}
	if cfg.FatalityProbability != 0.125 {
		t.Errorf("fatality = %g, want 0.125", cfg.FatalityProbability)
	}
	if cfg.ParticleCount != want.ParticleCount {
		t.Errorf("particles = %d, want the preset's %d", cfg.ParticleCount, want.ParticleCount)
	}
}

func TestUnknownPreset(t *testing.T) {
	_, err := execute(t, "init-config", filepath.Join(t.TempDir(), "x.yaml"), "--preset", "nope")
	if !errors.Is(err, config.ErrUnknownPreset) {
		t.Errorf("got %v, want ErrUnknownPreset", err)
	}
}

func TestRunListAnalyzeExport(t *testing.T) {
	dir := t.TempDir()
	common := []string{"--data", dir}
	run := append([]string{"run", "--particles", "30", "--time", "3", "--seed", "4"}, common...)

	out, err := execute(t, run...)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	for _, want := range []string{"run id:", "final:", "summary:", "metrics:"} {
		if !strings.Contains(out, want) {
			t.Errorf("run output lacks %q", want)
		}
	}

	out, err = execute(t, append([]string{"list"}, common...)...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "default") || !strings.Contains(out, "stochastic") {
		t.Errorf("list output:\n%s", out)
	}

	out, err = execute(t, append([]string{"analyze", "latest", "--json"}, common...)...)
	if err != nil {
		t.Fatal(err)
	}
	var sum analysis.Summary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("analyze json: %v\n%s", err, out)
	}
	if sum.Population != 30 {
		t.Errorf("population = %d, want 30", sum.Population)
	}

	csvPath := filepath.Join(dir, "series.csv")
	if _, err := execute(t, append([]string{"export-csv", "-o", csvPath}, common...)...); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "time,epoch,susceptible") {
		t.Errorf("csv header: %q", strings.SplitN(string(data), "\n", 2)[0])
	}
}

func TestRunNoSave(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "run", "--no-save", "--particles", "20", "--time", "1", "--data", dir); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "list", "--data", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "no runs found") {
		t.Errorf("list after --no-save:\n%s", out)
	}
}

func TestExportSVGSnapshot(t *testing.T) {
	out, err := execute(t, "export-svg", "--particles", "25", "--at", "1", "--size", "200")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<svg ") || strings.Count(out, `class="particle`) != 25 {
		t.Errorf("unexpected svg:\n%.200s", out)
	}
}

func TestSweepJSON(t *testing.T) {
	out, err := execute(t, "sweep", "--particles", "20", "--time", "1",
		"--param", "fatality_probability", "--min", "0", "--max", "1", "--steps", "3",
		"--runs", "2", "--workers", "2", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var points []experiment.SweepPoint
	if err := json.Unmarshal([]byte(out), &points); err != nil {
		t.Fatalf("sweep json: %v\n%s", err, out)
	}
	if len(points) != 3 || points[2].Value != 1 || points[0].Aggregate.Runs != 2 {
		t.Errorf("points = %+v", points)
	}
}
