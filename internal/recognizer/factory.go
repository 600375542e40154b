package recognizer

import (
	"fmt"
	"log/slog"

	"vidscribe/internal/config"
	"vidscribe/internal/logging"
)

// New returns the engine selected by the recognition configuration.
func New(cfg config.Recognition, logger *slog.Logger) (Engine, error) {
	logger = logging.NewComponentLogger(logger, "recognizer")
	switch cfg.Engine {
	case config.EngineProcess, "":
		return NewProcessEngine(cfg.Command, logger), nil
	case config.EngineVosk:
		return NewNativeEngine(logger)
	case config.EngineVoskServer:
		return NewVoskServerEngine(cfg.ServerURL, logger), nil
	case config.EngineStub:
		return NewStubEngine(logger), nil
	default:
		return nil, fmt.Errorf("recognition.engine: unsupported value %q", cfg.Engine)
	}
}
