// Package fusion merges audio moments, chat moments, and viewer clips
// into ranked, non-overlapping signal moments.
//
// Every source timestamp becomes a candidate. Each candidate gathers its
// nearest chat and audio match plus nearby viewer clips, accumulates a
// weighted score, and earns a convergence bonus when independent sources
// agree. Candidates below the score floor are dropped, the rest pass
// through greedy highest-score-wins interval deduplication, and the
// survivors come back sorted by timestamp.
//
// Confidence is the fraction of source types that contributed; the
// denominator is the signalSourceTypes constant and must track any new
// source type added to the engine.
package fusion
