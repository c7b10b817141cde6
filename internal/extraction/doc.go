// Package extraction implements the clip-cutting pipeline stage.
//
// Each fused moment becomes one clip file plus a thumbnail under the job
// output directory. Cutting is the most parallelizable part of the
// pipeline, so this is the one stage that fans out internally, bounded by
// the configured concurrency.
package extraction
