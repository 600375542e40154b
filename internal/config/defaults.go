package config

const (
	defaultConfigPath        = "~/.config/vidscribe/config.toml"
	defaultOutputDir         = "~/Transcripts"
	defaultWorkDir           = "~/.cache/vidscribe/work"
	defaultStateDir          = "~/.local/share/vidscribe"
	defaultLogDir            = "~/.local/share/vidscribe/logs"
	defaultFFmpegBinary      = "ffmpeg"
	defaultEngineCommand     = "vosk-stream"
	defaultServerURL         = "ws://127.0.0.1:2700"
	defaultSampleRate        = 16000
	defaultFrameSize         = 4000
	defaultConcurrency       = 1
	maxConcurrency           = 16
	defaultProgressLogBucket = 5
	defaultWorkRetentionDays = 7
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Recognition engine names accepted by recognition.engine.
const (
	EngineProcess    = "process"
	EngineVosk       = "vosk"
	EngineVoskServer = "vosk-server"
	EngineStub       = "stub"
)

// Environment variables consulted during normalization.
const (
	EnvModelDir  = "VIDSCRIBE_MODEL_DIR"
	EnvOutputDir = "VIDSCRIBE_OUTPUT_DIR"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Recognition: Recognition{
			Engine:     EngineProcess,
			Command:    defaultEngineCommand,
			ServerURL:  defaultServerURL,
			SampleRate: defaultSampleRate,
			FrameSize:  defaultFrameSize,
		},
		Extraction: Extraction{
			FFmpegBinary: defaultFFmpegBinary,
		},
		Batch: Batch{
			Concurrency:       defaultConcurrency,
			ProgressLogBucket: defaultProgressLogBucket,
			WorkRetentionDays: defaultWorkRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
