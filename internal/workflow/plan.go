package workflow

import (
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"vidscribe/internal/queue"
	"vidscribe/internal/transcribe"
)

// outputPlan assigns every job its transcript path and records the jobs whose
// path was already claimed by an earlier job in the batch.
type outputPlan struct {
	paths      map[int64]string
	collisions map[int64]*transcribe.OutputCollisionError
}

// collisionKey normalizes a path so that visually identical names (NFC vs
// NFD, redundant separators) claim the same transcript.
func collisionKey(path string) string {
	return norm.NFC.String(filepath.Clean(path))
}

func planOutputs(jobs []queue.Job, outputDir string) outputPlan {
	plan := outputPlan{
		paths:      make(map[int64]string, len(jobs)),
		collisions: make(map[int64]*transcribe.OutputCollisionError),
	}
	claims := make(map[string]int64, len(jobs))
	for _, job := range jobs {
		path := transcribe.OutputPath(outputDir, job.SourcePath)
		plan.paths[job.ID] = path
		key := collisionKey(path)
		if owner, taken := claims[key]; taken {
			plan.collisions[job.ID] = &transcribe.OutputCollisionError{Path: path, ClaimedBy: owner}
			continue
		}
		claims[key] = job.ID
	}
	return plan
}
