// Package analysis summarises recorded traces.
//
//   - [Spectrum] and [DominantFrequency]: power spectrum of one activity series
//   - [Summarize]: mean, standard deviation and range of every unit
//   - [NewPhasePortrait]: two units plotted against each other
//   - [NewPoincareSection]: a portrait sampled when a third unit crosses a level
//
// A delayed inhibitory ring settles into an oscillation whose period is set
// by its delays:
//
//	tr, _ := net.FlatRun(10)
//	f, _ := analysis.DominantFrequency(tr.Units[0], cfg.MinDelay)
package analysis
