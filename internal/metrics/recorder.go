package metrics

import (
	"github.com/san-kum/dotsim/internal/sim"
)

// Sample is one row of the per-epoch series.
type Sample struct {
	Time         float64 `csv:"time" json:"time"`
	Epoch        int     `csv:"epoch" json:"epoch"`
	Susceptible  int     `csv:"susceptible" json:"susceptible"`
	Asymptomatic int     `csv:"asymptomatic" json:"asymptomatic"`
	Infected     int     `csv:"infected" json:"infected"`
	Recovered    int     `csv:"recovered" json:"recovered"`
	Dead         int     `csv:"dead" json:"dead"`
	Acceptance   float64 `csv:"acceptance" json:"acceptance"`
	Kinetic      float64 `csv:"kinetic" json:"kinetic"`
	Contacts     int     `csv:"contacts" json:"contacts"`
}

// Recorder is a sim.Observer that feeds its metrics and keeps the series.
type Recorder struct {
	metrics []Metric
	samples []Sample
}

func NewRecorder(ms ...Metric) *Recorder {
	return &Recorder{metrics: ms}
}

func (r *Recorder) OnEpoch(rep sim.EpochReport) {
	for _, m := range r.metrics {
		m.Observe(rep)
	}
	s := Sample{
		Time:         rep.Elapsed.Seconds(),
		Epoch:        rep.Epoch,
		Susceptible:  rep.Counts.Susceptible,
		Asymptomatic: rep.Counts.Asymptomatic,
		Infected:     rep.Counts.Infected,
		Recovered:    rep.Counts.Recovered,
		Dead:         rep.Counts.Dead,
		Acceptance:   rep.Pass.AcceptanceRate(),
		Contacts:     rep.Collisions.Contacts,
	}
	if rep.Store != nil {
		s.Kinetic = Kinetic(rep.Store)
	}
	r.samples = append(r.samples, s)
}

func (r *Recorder) Samples() []Sample { return r.samples }

// Values returns every metric keyed by name.
func (r *Recorder) Values() map[string]float64 {
	out := make(map[string]float64, len(r.metrics))
	for _, m := range r.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (r *Recorder) Reset() {
	r.samples = r.samples[:0]
	for _, m := range r.metrics {
		m.Reset()
	}
}
