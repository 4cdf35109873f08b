// Package analysis summarises epidemic curves.
//
//   - [Summarize]: peak, attack rate and outcome of one run's series
//   - [AggregateSummaries]: mean and spread of many summaries, for seed ensembles
//     and parameter sweeps
//
// A typical headless flow records a series with a metrics.Recorder and
// hands it over:
//
//	sum, err := analysis.Summarize(rec.Samples())
//	if errors.Is(err, analysis.ErrNoData) {
//	    // run ended before the first epoch
//	}
package analysis
