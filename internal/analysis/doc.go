// Package analysis summarizes ensembles of stochastic trajectories.
//
//   - [Ensemble]: per-point mean and standard deviation over realizations
//   - [Stats.Series]: mean and a ±k·std band of one state, ready for plotting
//   - [Stats.Summary]: terminal statistics per state
//   - [FinalQuantiles]: quantiles of the terminal distribution
//   - [Scatter] and [Scatter.ASCII]: 2D projections of the ensemble
//
// Failed realizations (NaN after an abort) are excluded from every statistic.
package analysis
