package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Set required environment variables
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	defer os.Unsetenv("DEEPGRAM_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DeepgramAPIKey != "test-deepgram-key" {
		t.Errorf("Expected DeepgramAPIKey 'test-deepgram-key', got '%s'", cfg.DeepgramAPIKey)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	// Clear environment variables
	os.Unsetenv("DEEPGRAM_API_KEY")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when required keys are missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	defer os.Unsetenv("DEEPGRAM_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.BindAddress != "0.0.0.0" {
		t.Errorf("Expected default BindAddress '0.0.0.0', got '%s'", cfg.BindAddress)
	}

	if cfg.UDPPort != 9876 {
		t.Errorf("Expected default UDPPort 9876, got %d", cfg.UDPPort)
	}

	if cfg.ReadBufferBytes != 65536 {
		t.Errorf("Expected default ReadBufferBytes 65536, got %d", cfg.ReadBufferBytes)
	}

	if cfg.PacketWorkers != 10 {
		t.Errorf("Expected default PacketWorkers 10, got %d", cfg.PacketWorkers)
	}

	if cfg.WatcherWorkers != 2 {
		t.Errorf("Expected default WatcherWorkers 2, got %d", cfg.WatcherWorkers)
	}

	if cfg.DebounceInterval != 2.0 {
		t.Errorf("Expected default DebounceInterval 2.0, got %f", cfg.DebounceInterval)
	}

	if cfg.SessionLiveness != 5.0 {
		t.Errorf("Expected default SessionLiveness 5.0, got %f", cfg.SessionLiveness)
	}

	if cfg.MinAudioBytes != 44 {
		t.Errorf("Expected default MinAudioBytes 44, got %d", cfg.MinAudioBytes)
	}

	if cfg.RawAudioFallbackBytes != 1000 {
		t.Errorf("Expected default RawAudioFallbackBytes 1000, got %d", cfg.RawAudioFallbackBytes)
	}

	if cfg.SampleRate != 44100 {
		t.Errorf("Expected default SampleRate 44100, got %d", cfg.SampleRate)
	}

	if cfg.DeepgramModel != "nova-2" {
		t.Errorf("Expected default DeepgramModel 'nova-2', got '%s'", cfg.DeepgramModel)
	}

	if cfg.DeepgramLanguage != "en" {
		t.Errorf("Expected default DeepgramLanguage 'en', got '%s'", cfg.DeepgramLanguage)
	}

	if cfg.OrchestratorURL != "localhost:50051" {
		t.Errorf("Expected default OrchestratorURL 'localhost:50051', got '%s'", cfg.OrchestratorURL)
	}

	if cfg.PipelineMaxAttempts != 3 {
		t.Errorf("Expected default PipelineMaxAttempts 3, got %d", cfg.PipelineMaxAttempts)
	}

	if cfg.PipelineRetryBackoff != 0 {
		t.Errorf("Expected default PipelineRetryBackoff 0, got %d", cfg.PipelineRetryBackoff)
	}

	if cfg.PipelineRecursionLimit != 50 {
		t.Errorf("Expected default PipelineRecursionLimit 50, got %d", cfg.PipelineRecursionLimit)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	defer os.Unsetenv("DEEPGRAM_API_KEY")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.DeepgramAPIKey != "test-deepgram-key" {
		t.Errorf("Expected DeepgramAPIKey 'test-deepgram-key', got '%s'", cfg.DeepgramAPIKey)
	}
}

func TestValidate_LivenessMustExceedDebounce(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	os.Setenv("DEBOUNCE_INTERVAL", "5.0")
	os.Setenv("SESSION_LIVENESS", "5.0")
	defer os.Unsetenv("DEEPGRAM_API_KEY")
	defer os.Unsetenv("DEBOUNCE_INTERVAL")
	defer os.Unsetenv("SESSION_LIVENESS")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when SESSION_LIVENESS <= DEBOUNCE_INTERVAL")
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			DeepgramAPIKey:      "key",
			UDPPort:             9876,
			ReadBufferBytes:     65536,
			ReceiveTimeout:      1.0,
			PacketWorkers:       10,
			PacketQueueSize:     1000,
			WatcherWorkers:      2,
			WatcherQueueSize:    256,
			DebounceInterval:    2.0,
			SessionLiveness:     5.0,
			MinAudioBytes:       44,
			SampleRate:          44100,
			Channels:            1,
			BitDepth:            16,
			PipelineMaxAttempts: 3,
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("Valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.DeepgramAPIKey = "" }},
		{"bad port", func(c *Config) { c.UDPPort = 0 }},
		{"port too large", func(c *Config) { c.UDPPort = 70000 }},
		{"bad buffer", func(c *Config) { c.ReadBufferBytes = 0 }},
		{"bad receive timeout", func(c *Config) { c.ReceiveTimeout = 0 }},
		{"no packet workers", func(c *Config) { c.PacketWorkers = 0 }},
		{"no watcher workers", func(c *Config) { c.WatcherWorkers = 0 }},
		{"no packet queue", func(c *Config) { c.PacketQueueSize = 0 }},
		{"bad debounce", func(c *Config) { c.DebounceInterval = 0 }},
		{"liveness equals debounce", func(c *Config) { c.SessionLiveness = c.DebounceInterval }},
		{"bad min bytes", func(c *Config) { c.MinAudioBytes = 0 }},
		{"bad sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"no attempts", func(c *Config) { c.PipelineMaxAttempts = 0 }},
	}

	for _, tc := range cases {
		cfg := base()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestDurationAccessors(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	os.Setenv("DEBOUNCE_INTERVAL", "0.5")
	os.Setenv("SESSION_LIVENESS", "1.5")
	os.Setenv("STT_TIMEOUT", "10")
	defer os.Unsetenv("DEEPGRAM_API_KEY")
	defer os.Unsetenv("DEBOUNCE_INTERVAL")
	defer os.Unsetenv("SESSION_LIVENESS")
	defer os.Unsetenv("STT_TIMEOUT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if got := cfg.DebounceDuration(); got != 500*time.Millisecond {
		t.Errorf("Expected DebounceDuration 500ms, got %v", got)
	}

	if got := cfg.LivenessDuration(); got != 1500*time.Millisecond {
		t.Errorf("Expected LivenessDuration 1.5s, got %v", got)
	}

	if got := cfg.STTTimeoutDuration(); got != 10*time.Second {
		t.Errorf("Expected STTTimeoutDuration 10s, got %v", got)
	}

	if got := cfg.ReceiveTimeoutDuration(); got != time.Second {
		t.Errorf("Expected ReceiveTimeoutDuration 1s, got %v", got)
	}

	if got := cfg.PipelineRetryBackoffDuration(); got != 0 {
		t.Errorf("Expected PipelineRetryBackoffDuration 0, got %v", got)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := GetEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	value = GetEnv("NON_EXISTENT_KEY", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}
