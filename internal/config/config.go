package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the UDP voice gateway service
type Config struct {
	// UDP listener configuration
	BindAddress     string  `envconfig:"BIND_ADDRESS" default:"0.0.0.0"`
	UDPPort         int     `envconfig:"UDP_PORT" default:"9876"`
	ReadBufferBytes int     `envconfig:"READ_BUFFER_BYTES" default:"65536"` // Largest datagram accepted
	ReceiveTimeout  float64 `envconfig:"RECEIVE_TIMEOUT" default:"1.0"`     // Seconds between shutdown checks in the receive loop

	// Worker pool configuration
	PacketWorkers    int `envconfig:"PACKET_WORKERS" default:"10"` // Goroutines handling received packets
	PacketQueueSize  int `envconfig:"PACKET_QUEUE_SIZE" default:"1000"`
	WatcherWorkers   int `envconfig:"WATCHER_WORKERS" default:"2"` // Goroutines running debounce watchers
	WatcherQueueSize int `envconfig:"WATCHER_QUEUE_SIZE" default:"256"`

	// Session lifecycle configuration
	DebounceInterval float64 `envconfig:"DEBOUNCE_INTERVAL" default:"2.0"` // Seconds of silence before a session is finalized
	SessionLiveness  float64 `envconfig:"SESSION_LIVENESS" default:"5.0"`  // Seconds of silence before a session is stale
	SweepInterval    float64 `envconfig:"SWEEP_INTERVAL" default:"30.0"`   // Seconds between stale-session sweeps

	// Audio acceptance configuration
	MinAudioBytes         int `envconfig:"MIN_AUDIO_BYTES" default:"44"`            // Smallest plausible payload (one WAV header)
	RawAudioFallbackBytes int `envconfig:"RAW_AUDIO_FALLBACK_BYTES" default:"1000"` // Unrecognized payloads above this are treated as raw audio
	SampleRate            int `envconfig:"SAMPLE_RATE" default:"44100"`             // Assumed rate when wrapping raw samples
	Channels              int `envconfig:"CHANNELS" default:"1"`
	BitDepth              int `envconfig:"BIT_DEPTH" default:"16"`

	// Deepgram STT API configuration
	DeepgramAPIKey   string  `envconfig:"DEEPGRAM_API_KEY" required:"true"`
	DeepgramModel    string  `envconfig:"DEEPGRAM_MODEL" default:"nova-2"` // nova-2, enhanced, base
	DeepgramLanguage string  `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`  // Language code (en, es, fr, etc.)
	STTTimeout       float64 `envconfig:"STT_TIMEOUT" default:"30.0"`      // Seconds per transcription call

	// Assistant orchestrator gRPC endpoint
	OrchestratorURL        string  `envconfig:"ORCHESTRATOR_URL" default:"localhost:50051"`
	OrchestratorTLSEnabled bool    `envconfig:"ORCHESTRATOR_TLS_ENABLED" default:"false"`
	OrchestratorTimeout    float64 `envconfig:"ORCHESTRATOR_TIMEOUT" default:"30.0"` // Seconds per pipeline attempt
	PipelineToolsEnabled   bool    `envconfig:"PIPELINE_TOOLS_ENABLED" default:"true"`
	PipelineRecursionLimit int     `envconfig:"PIPELINE_RECURSION_LIMIT" default:"50"`

	// Resilience configuration
	PipelineMaxAttempts        int `envconfig:"PIPELINE_MAX_ATTEMPTS" default:"3"`          // Total pipeline attempts per session
	PipelineRetryBackoff       int `envconfig:"PIPELINE_RETRY_BACKOFF" default:"0"`         // Milliseconds between attempts (0 = immediate)
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery

	// Observability configuration
	HTTPPort       string `envconfig:"HTTP_PORT" default:"8080"`       // Admin server: /health, /ready, /metrics
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints that envconfig tags cannot express
func (c *Config) Validate() error {
	if c.DeepgramAPIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if c.UDPPort <= 0 || c.UDPPort > 65535 {
		return fmt.Errorf("UDP_PORT must be in 1..65535, got %d", c.UDPPort)
	}
	if c.ReadBufferBytes <= 0 {
		return fmt.Errorf("READ_BUFFER_BYTES must be positive, got %d", c.ReadBufferBytes)
	}
	if c.ReceiveTimeout <= 0 {
		return fmt.Errorf("RECEIVE_TIMEOUT must be positive, got %v", c.ReceiveTimeout)
	}
	if c.PacketWorkers <= 0 || c.WatcherWorkers <= 0 {
		return fmt.Errorf("worker pool sizes must be positive, got packet=%d watcher=%d", c.PacketWorkers, c.WatcherWorkers)
	}
	if c.PacketQueueSize <= 0 || c.WatcherQueueSize <= 0 {
		return fmt.Errorf("queue sizes must be positive, got packet=%d watcher=%d", c.PacketQueueSize, c.WatcherQueueSize)
	}
	if c.DebounceInterval <= 0 {
		return fmt.Errorf("DEBOUNCE_INTERVAL must be positive, got %v", c.DebounceInterval)
	}
	// The debounce path must fire before a session can go stale, otherwise
	// live sessions would be swept mid-transmission.
	if c.SessionLiveness <= c.DebounceInterval {
		return fmt.Errorf("SESSION_LIVENESS (%v) must be greater than DEBOUNCE_INTERVAL (%v)", c.SessionLiveness, c.DebounceInterval)
	}
	if c.MinAudioBytes <= 0 {
		return fmt.Errorf("MIN_AUDIO_BYTES must be positive, got %d", c.MinAudioBytes)
	}
	if c.SampleRate <= 0 || c.Channels <= 0 || c.BitDepth <= 0 {
		return fmt.Errorf("sample format must be positive, got rate=%d channels=%d depth=%d", c.SampleRate, c.Channels, c.BitDepth)
	}
	if c.PipelineMaxAttempts <= 0 {
		return fmt.Errorf("PIPELINE_MAX_ATTEMPTS must be positive, got %d", c.PipelineMaxAttempts)
	}
	return nil
}

// ReceiveTimeoutDuration returns the receive loop timeout as a time.Duration
func (c *Config) ReceiveTimeoutDuration() time.Duration {
	return time.Duration(c.ReceiveTimeout * float64(time.Second))
}

// DebounceDuration returns the debounce interval as a time.Duration
func (c *Config) DebounceDuration() time.Duration {
	return time.Duration(c.DebounceInterval * float64(time.Second))
}

// LivenessDuration returns the session liveness threshold as a time.Duration
func (c *Config) LivenessDuration() time.Duration {
	return time.Duration(c.SessionLiveness * float64(time.Second))
}

// SweepIntervalDuration returns the stale-session sweep interval as a time.Duration
func (c *Config) SweepIntervalDuration() time.Duration {
	return time.Duration(c.SweepInterval * float64(time.Second))
}

// STTTimeoutDuration returns the transcription call timeout as a time.Duration
func (c *Config) STTTimeoutDuration() time.Duration {
	return time.Duration(c.STTTimeout * float64(time.Second))
}

// OrchestratorTimeoutDuration returns the per-attempt pipeline timeout as a time.Duration
func (c *Config) OrchestratorTimeoutDuration() time.Duration {
	return time.Duration(c.OrchestratorTimeout * float64(time.Second))
}

// PipelineRetryBackoffDuration returns the pause between pipeline attempts
func (c *Config) PipelineRetryBackoffDuration() time.Duration {
	return time.Duration(c.PipelineRetryBackoff) * time.Millisecond
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
