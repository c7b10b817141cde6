package workflow

import (
	"clipforge/internal/pipeline"
)

// StageSet bundles the concrete pipeline stages the manager orchestrates.
// Nil entries are skipped, so optional stages (reframing, captioning) drop
// out of the sequence when their features are disabled.
type StageSet struct {
	Download   pipeline.Stage
	Analysis   pipeline.Stage
	Extraction pipeline.Stage
	Reframing  pipeline.Stage
	Captioning pipeline.Stage
	Upload     pipeline.Stage
}

func (s StageSet) list() []pipeline.Stage {
	ordered := []pipeline.Stage{
		s.Download,
		s.Analysis,
		s.Extraction,
		s.Reframing,
		s.Captioning,
		s.Upload,
	}
	stages := make([]pipeline.Stage, 0, len(ordered))
	for _, stage := range ordered {
		if stage == nil {
			continue
		}
		stages = append(stages, stage)
	}
	return stages
}
