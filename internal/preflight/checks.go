package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sys/unix"

	"vidscribe/internal/config"
	"vidscribe/internal/deps"
	"vidscribe/internal/recognizer"
)

const serverDialTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDirectory passes when path is an accessible directory, or
// when it is missing and its nearest existing parent is writable so a run
// can create it.
func CheckCreatableDirectory(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	// ENOTDIR means a path component is a file; the parent walk names it.
	if _, err := os.Stat(path); err == nil || !(errors.Is(err, fs.ErrNotExist) || errors.Is(err, unix.ENOTDIR)) {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		info, err := os.Stat(parent)
		if err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, parent)}
			}
			if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
			}
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
		}
		next := filepath.Dir(parent)
		if next == parent {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
		parent = next
	}
}

// CheckNativeEngine reports whether the in-process Vosk backend is built in.
func CheckNativeEngine() Result {
	const name = "Vosk engine"
	if !recognizer.NativeAvailable() {
		return Result{Name: name, Detail: recognizer.ErrNativeUnavailable.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "compiled in"}
}

// CheckModelDir verifies that modelDir holds a Vosk model layout.
func CheckModelDir(modelDir string) Result {
	const name = "Model directory"
	if err := recognizer.ValidateModelDir(modelDir); err != nil {
		var loadErr *recognizer.ModelLoadError
		if errors.As(err, &loadErr) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", modelDir, loadErr.Reason)}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: modelDir}
}

// CheckVoskServer verifies that the vosk-server websocket accepts connections.
func CheckVoskServer(ctx context.Context, url string) Result {
	const name = "Vosk server"
	url = strings.TrimSpace(url)
	if url == "" {
		return Result{Name: name, Detail: "missing server_url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, serverDialTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: serverDialTimeout}
	conn, _, err := dialer.DialContext(checkCtx, url, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (timed out)", url)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", url, err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", url)}
}

// SystemRequirements lists the executables the configured engine needs.
func SystemRequirements(cfg *config.Config) []deps.Requirement {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for audio extraction",
		},
	}
	if cfg.Recognition.Engine == config.EngineProcess {
		requirements = append(requirements, deps.Requirement{
			Name:        "Recognizer helper",
			Command:     cfg.Recognition.Command,
			Description: "Required by the process recognition engine (install scripts/vosk-stream on PATH)",
		})
	}
	return requirements
}

// CheckSystemDeps evaluates all system-level dependencies for the given config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(SystemRequirements(cfg))
}

func dependencyResults(statuses []deps.Status) []Result {
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: status.Name, Passed: status.Available || status.Optional}
		switch {
		case status.Available:
			result.Detail = status.Command
		case status.Optional:
			result.Detail = status.Detail + " (optional)"
		default:
			result.Detail = status.Detail
			if status.Description != "" {
				result.Detail += " - " + strings.ToLower(status.Description)
			}
		}
		results = append(results, result)
	}
	return results
}
