// Package viz renders solver runs for the terminal.
//
// Output is plain text styled with lipgloss:
//
//   - [RenderResult]: final state of one solve
//   - [RenderTrace]: one line per iteration record
//   - [RenderSummary]: status counts and evaluation costs of a batch
//   - [ResidualPlot]: log10 residual history drawn with asciigraph
//   - [SweepPlot]: evaluations against a swept parameter
//
// Colors follow the current [Theme], selected with [SetTheme].
package viz
