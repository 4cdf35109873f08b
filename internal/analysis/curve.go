package analysis

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/dotsim/internal/metrics"
)

var ErrNoData = errors.New("analysis: no samples")

// Summary describes one epidemic curve.
type Summary struct {
	Population int     `json:"population"`
	Epochs     int     `json:"epochs"`
	Duration   float64 `json:"duration"`

	PeakActive     int     `json:"peak_active"`
	PeakTime       float64 `json:"peak_time"`
	AttackRate     float64 `json:"attack_rate"`
	FinalDead      int     `json:"final_dead"`
	FinalRecovered int     `json:"final_recovered"`
	// CaseFatality is dead over resolved cases, 0 when nothing resolved.
	CaseFatality float64 `json:"case_fatality"`
	// EndTime is when the last active case resolved, or -1 if the outbreak
	// was still running at the end of the series.
	EndTime float64 `json:"end_time"`

	MeanAcceptance float64 `json:"mean_acceptance"`
	MeanKinetic    float64 `json:"mean_kinetic"`
}

func Summarize(samples []metrics.Sample) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, ErrNoData
	}

	active := make([]float64, len(samples))
	kinetic := make([]float64, len(samples))
	var acceptance []float64
	for i, s := range samples {
		active[i] = float64(s.Asymptomatic + s.Infected)
		kinetic[i] = s.Kinetic
		if s.Acceptance > 0 {
			acceptance = append(acceptance, s.Acceptance)
		}
	}

	last := samples[len(samples)-1]
	peak := floats.MaxIdx(active)
	sum := Summary{
		Population:     population(last),
		Epochs:         len(samples),
		Duration:       last.Time,
		PeakActive:     int(active[peak]),
		PeakTime:       samples[peak].Time,
		FinalDead:      last.Dead,
		FinalRecovered: last.Recovered,
		EndTime:        -1,
		MeanKinetic:    stat.Mean(kinetic, nil),
	}
	if len(acceptance) > 0 {
		sum.MeanAcceptance = stat.Mean(acceptance, nil)
	}
	if sum.Population > 0 {
		sum.AttackRate = float64(sum.Population-last.Susceptible) / float64(sum.Population)
	}
	if resolved := last.Dead + last.Recovered; resolved > 0 {
		sum.CaseFatality = float64(last.Dead) / float64(resolved)
	}

	seen := false
	for i, a := range active {
		if a > 0 {
			seen = true
			continue
		}
		if seen {
			sum.EndTime = samples[i].Time
			break
		}
	}
	return sum, nil
}

func population(s metrics.Sample) int {
	return s.Susceptible + s.Asymptomatic + s.Infected + s.Recovered + s.Dead
}
