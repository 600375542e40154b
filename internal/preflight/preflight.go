package preflight

import (
	"context"
	"strings"

	"vidscribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Dirs overrides the configured model and output directories, as resolved for
// the next run. Empty fields fall back to the configuration.
type Dirs struct {
	ModelDir  string
	OutputDir string
}

// RunAll executes all applicable preflight checks for the given config.
// Engine-specific checks only run for the configured engine.
func RunAll(ctx context.Context, cfg *config.Config, dirs Dirs) []Result {
	if cfg == nil {
		return nil
	}
	modelDir := firstNonEmpty(dirs.ModelDir, cfg.Paths.ModelDir)
	outputDir := firstNonEmpty(dirs.OutputDir, cfg.Paths.OutputDir)

	results := dependencyResults(CheckSystemDeps(cfg))

	switch cfg.Recognition.Engine {
	case config.EngineProcess:
		results = append(results, CheckModelDir(modelDir))
	case config.EngineVosk:
		results = append(results, CheckNativeEngine(), CheckModelDir(modelDir))
	case config.EngineVoskServer:
		results = append(results, CheckVoskServer(ctx, cfg.Recognition.ServerURL))
	}

	results = append(results,
		CheckCreatableDirectory("Output directory", outputDir),
		CheckCreatableDirectory("Work directory", cfg.Paths.WorkDir),
		CheckCreatableDirectory("State directory", cfg.Paths.StateDir),
	)
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
