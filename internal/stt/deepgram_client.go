package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	restv1 "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/echovox/udp-voice-gateway/internal/config"
	"github.com/echovox/udp-voice-gateway/internal/observability"
	"github.com/echovox/udp-voice-gateway/internal/resilience"
)

// DeepgramClient implements Transcriber using Deepgram's prerecorded REST API
type DeepgramClient struct {
	config         *config.Config
	client         *restv1.Client
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
}

// NewDeepgramClient creates a new Deepgram prerecorded transcription client
func NewDeepgramClient(cfg *config.Config) *DeepgramClient {
	// Create circuit breaker
	circuitBreaker := resilience.NewCircuitBreaker(
		"deepgram",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	restClient := listenClient.NewREST(cfg.DeepgramAPIKey, &interfaces.ClientOptions{})

	return &DeepgramClient{
		config:         cfg,
		client:         restv1.New(restClient),
		circuitBreaker: circuitBreaker,
		logger:         observability.WithComponent("stt"),
	}
}

// Transcribe sends the complete audio payload to Deepgram and returns the
// best transcript. The caller bounds the call via ctx; there is no retry at
// this layer.
func (d *DeepgramClient) Transcribe(ctx context.Context, audio []byte) (*TranscriptionResult, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("no audio data to transcribe")
	}

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.config.DeepgramModel,
		Language:    d.config.DeepgramLanguage,
		Punctuate:   true,
		SmartFormat: true,
	}

	var result *TranscriptionResult
	start := time.Now()

	err := d.circuitBreaker.Call(func() error {
		res, err := d.client.FromStream(ctx, bytes.NewReader(audio), options)
		if err != nil {
			return fmt.Errorf("deepgram transcription request failed: %w", err)
		}

		if res == nil || res.Results == nil || len(res.Results.Channels) == 0 ||
			len(res.Results.Channels[0].Alternatives) == 0 {
			return fmt.Errorf("deepgram returned no transcription alternatives")
		}

		alt := res.Results.Channels[0].Alternatives[0]
		transcript := strings.TrimSpace(alt.Transcript)
		if transcript == "" {
			return fmt.Errorf("deepgram returned an empty transcript")
		}

		result = &TranscriptionResult{
			Text:       transcript,
			Confidence: alt.Confidence,
		}
		if res.Metadata != nil {
			result.Duration = res.Metadata.Duration
		}
		return nil
	})

	// Update circuit breaker metrics
	observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.GetState()))
	observability.RecordSTTRequest(err == nil, time.Since(start))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("deepgram")
		return nil, err
	}

	d.logger.Debug().
		Int("audio_bytes", len(audio)).
		Float64("confidence", result.Confidence).
		Float64("audio_seconds", result.Duration).
		Dur("elapsed", time.Since(start)).
		Msg("Transcription completed")

	return result, nil
}
