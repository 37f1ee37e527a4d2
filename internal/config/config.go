package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gamut-telemetry/internal/constant"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Backend   BackendConfig
	Queue     QueueConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	Platform           string
	LogFilePath        string
	DispatchLogPath    string
	CorsAllowedOrigins string
	NatsEnabled        bool
	NatsURL            string
}

type BackendConfig struct {
	// Base URL of the product API, e.g. https://api.thegamut.app/api.
	BaseURL string
}

type QueueConfig struct {
	// "file" (append-only JSONL log) or "redis".
	Backend    string
	FilePath   string
	RedisURL   string
	MaxEntries int
}

// TelemetryConfig carries the behavioral tunables. Production always uses
// Defaults(); tests construct shrunken variants.
type TelemetryConfig struct {
	HeartbeatInterval time.Duration
	SamplingInterval  time.Duration

	IdleTimeoutAudio   time.Duration
	IdleTimeoutFeed    time.Duration
	IdleTimeoutReading time.Duration
	CursorIdleWindow   time.Duration
	ActivityDebounce   time.Duration

	VelocityReadingMax  float64
	VelocityScanningMin float64

	ConfusionThresholdPx float64

	FlowThreshold    time.Duration
	FlowVelocityMax  float64
	FlowGraceSamples int

	RageClickCount  int
	RageClickWindow time.Duration

	CopyMinLength      int
	CopyTruncateLength int
}

func DefaultTelemetry() TelemetryConfig {
	return TelemetryConfig{
		HeartbeatInterval:    constant.HeartbeatInterval,
		SamplingInterval:     constant.SamplingInterval,
		IdleTimeoutAudio:     constant.IdleTimeoutAudio,
		IdleTimeoutFeed:      constant.IdleTimeoutFeed,
		IdleTimeoutReading:   constant.IdleTimeoutReading,
		CursorIdleWindow:     constant.CursorIdleWindow,
		ActivityDebounce:     constant.ActivityDebounce,
		VelocityReadingMax:   constant.VelocityReadingMax,
		VelocityScanningMin:  constant.VelocityScanningMin,
		ConfusionThresholdPx: constant.ConfusionThresholdPx,
		FlowThreshold:        constant.FlowThreshold,
		FlowVelocityMax:      constant.FlowVelocityMax,
		FlowGraceSamples:     constant.FlowGraceSamples,
		RageClickCount:       constant.RageClickCount,
		RageClickWindow:      constant.RageClickWindow,
		CopyMinLength:        constant.CopyMinLength,
		CopyTruncateLength:   constant.CopyTruncateLength,
	}
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("AGENT_PORT", "4600"),
			Environment:        getEnv("GO_ENV", "development"),
			Platform:           getEnv("AGENT_PLATFORM", "web"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "agent.log"),
			DispatchLogPath:    getEnv("DISPATCH_LOG_PATH", "dispatch.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsEnabled:        getEnvAsBool("NATS_ENABLED", false),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("BACKEND_API_URL", "http://localhost:5000/api"),
		},
		Queue: QueueConfig{
			Backend:    getEnv("QUEUE_BACKEND", "file"),
			FilePath:   getEnv("QUEUE_FILE_PATH", constant.OfflineQueueKey+".jsonl"),
			RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379"),
			MaxEntries: getEnvAsInt("QUEUE_MAX_ENTRIES", constant.QueueMaxEntries),
		},
		Telemetry: DefaultTelemetry(),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
