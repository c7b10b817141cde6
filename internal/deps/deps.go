package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external tool the pipeline shells out to and the
// command expected to resolve for it. Optional tools degrade a feature
// instead of blocking the pipeline.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the outcome of probing one requirement. Detail carries the
// resolved path when the tool is available and the failure reason when
// it is not.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries probes every requirement in order. Probing resolves the
// command without running it, so status endpoints can poll this without
// paying process spawns.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = probe(req)
	}
	return results
}

func probe(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Available = true
	status.Detail = path
	return status
}
