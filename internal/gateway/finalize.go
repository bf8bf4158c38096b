package gateway

import (
	"context"
	"time"

	"github.com/echovox/udp-voice-gateway/internal/audio"
	"github.com/echovox/udp-voice-gateway/internal/observability"
	"github.com/echovox/udp-voice-gateway/internal/resilience"
	"github.com/echovox/udp-voice-gateway/internal/session"
)

// Client-visible response strings. Existing clients match on these exact
// prefixes, so they are part of the wire contract.
const (
	responseInvalidAudio = "ERROR: Invalid audio data"
	successPrefix        = "SUCCESS: Agent Response: "
	errorPrefix          = "ERROR: "
)

// finalizeSession runs the one-shot end of a transmission: claim the
// session, validate and normalize the payload, transcribe it, dispatch the
// transcript to the pipeline, and answer the client. The session leaves the
// registry on every exit path, success or not.
func (s *Server) finalizeSession(sess *session.Session) {
	if !sess.BeginFinalize() {
		return // Another path already owns this session
	}

	correlationID := observability.NewCorrelationID()
	logger := observability.WithCorrelationID(correlationID).With().
		Str("component", "gateway").
		Str("session", sess.Key()).
		Logger()

	outcome := "error"
	defer func() {
		s.registry.Remove(sess.Key())
		observability.RecordSessionFinalized(outcome, sess.Age(), sess.TotalBytes())
	}()

	data := sess.Bytes()
	logger.Info().
		Int("payload_bytes", len(data)).
		Int("packets", sess.PacketCount()).
		Dur("session_age", sess.Age()).
		Msg("Finalizing session")

	if !audio.LooksLikeAudio(data, s.config.MinAudioBytes, s.config.RawAudioFallbackBytes) {
		outcome = "invalid_audio"
		logger.Warn().Int("payload_bytes", len(data)).Msg("Rejected implausible audio payload")
		s.sendResponse(sess.Addr(), responseInvalidAudio)
		return
	}

	wav := audio.Normalize(data, s.config.SampleRate, s.config.Channels, s.config.BitDepth)

	sttCtx, cancel := context.WithTimeout(s.ctx, s.config.STTTimeoutDuration())
	result, err := s.transcriber.Transcribe(sttCtx, wav)
	cancel()
	if err != nil {
		outcome = "stt_error"
		logger.Error().Err(err).Msg("Transcription failed")
		s.sendResponse(sess.Addr(), errorPrefix+err.Error())
		return
	}

	logger.Info().
		Str("transcript", result.Text).
		Float64("confidence", result.Confidence).
		Msg("Transcription completed")

	reply, err := s.dispatchTranscript(correlationID, result.Text)
	if err != nil {
		outcome = "pipeline_error"
		logger.Error().Err(err).Msg("Pipeline dispatch failed")
		s.sendResponse(sess.Addr(), errorPrefix+err.Error())
		return
	}

	outcome = "success"
	logger.Info().Int("reply_bytes", len(reply)).Msg("Session finalized")
	s.sendResponse(sess.Addr(), successPrefix+reply)
}

// dispatchTranscript sends the transcript downstream with bounded retry.
// Every failure counts as retryable here; only the attempt cap stops
// retries, and with the default zero backoff they are immediate.
func (s *Server) dispatchTranscript(correlationID, text string) (string, error) {
	retryConfig := &resilience.RetryConfig{
		MaxAttempts:       s.config.PipelineMaxAttempts,
		InitialBackoff:    s.config.PipelineRetryBackoffDuration(),
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Second,
	}

	var reply string
	attempt := 0

	err := resilience.Retry(s.ctx, func() error {
		attempt++
		if attempt > 1 {
			observability.RecordPipelineRetry()
		}

		ctx, cancel := context.WithTimeout(s.ctx, s.config.OrchestratorTimeoutDuration())
		defer cancel()

		var callErr error
		reply, callErr = s.pipeline.Process(ctx, correlationID, text)
		return callErr
	}, retryConfig, nil)

	return reply, err
}
