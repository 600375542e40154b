package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency vidscribe relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Missing returns the required dependencies that are not available.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Command = resolved
		results = append(results, status)
	}
	return results
}
