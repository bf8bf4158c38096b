package stt

import "context"

// TranscriptionResult represents a transcription result from Deepgram
type TranscriptionResult struct {
	// Text is the transcribed text
	Text string

	// Confidence is the confidence score (0.0 to 1.0) if available
	Confidence float64

	// Duration is the duration of the audio in seconds
	Duration float64
}

// Transcriber is the interface for batch speech-to-text clients. The audio
// payload is a complete recording (WAV container preferred); callers bound
// the call with the context deadline.
type Transcriber interface {
	// Transcribe converts a complete audio payload to text
	Transcribe(ctx context.Context, audio []byte) (*TranscriptionResult, error)
}
