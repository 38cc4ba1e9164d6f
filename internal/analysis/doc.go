// Package analysis inspects recorded flights.
//
//   - [Spectrum], [DominantFrequency]: power spectrum of a sampled signal,
//     used to find oscillations in attitude rates and altitude
//   - [Summarize]: mean, deviation and range of a signal
//   - [NewPhasePortrait]: one recorded signal against another
//
// # Example
//
//	wx, _ := viz.Series(states, meta.Notation, "wx")
//	f, _ := analysis.DominantFrequency(wx, 1/(times[1]-times[0]))
package analysis
