// Package audio detects highlight-worthy loudness events in an amplitude
// time series: isolated peaks, sustained loud stretches, and quiet spans
// that end in a sudden burst.
//
// The analyzer adapts its peak threshold to the recording's median
// loudness so a quiet stream and a loud stream both yield usable moments,
// and enforces a minimum gap between emitted moments so one extended
// event does not flood the fusion stage with near-duplicates.
package audio
