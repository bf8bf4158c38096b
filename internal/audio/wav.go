package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wavHeaderSize is the fixed size of a canonical PCM WAV header
const wavHeaderSize = 44

// WAVHeader represents the header structure of a WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// WrapPCM wraps raw little-endian PCM bytes in a WAV container
func WrapPCM(pcm []byte, sampleRate, channels, bitDepth int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("cannot wrap empty audio data")
	}
	if sampleRate <= 0 || channels <= 0 || bitDepth <= 0 {
		return nil, fmt.Errorf("invalid sample format: rate=%d channels=%d depth=%d", sampleRate, channels, bitDepth)
	}

	frameBytes := channels * bitDepth / 8
	if frameBytes == 0 || len(pcm)%frameBytes != 0 {
		return nil, fmt.Errorf("pcm length %d is not a multiple of the %d-byte frame size", len(pcm), frameBytes)
	}

	dataSize := uint32(len(pcm))
	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(channels) * uint32(bitDepth) / 8,
		BlockAlign:    uint16(channels) * uint16(bitDepth) / 8,
		BitsPerSample: uint16(bitDepth),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// Normalize returns data in the WAV container expected by transcription.
// Already-wrapped WAV payloads pass through unchanged. Raw payloads are
// wrapped assuming the configured sample format; payloads whose length is
// incompatible with that format (e.g. odd length for 16-bit samples) pass
// through unmodified rather than failing.
func Normalize(data []byte, sampleRate, channels, bitDepth int) []byte {
	if IsWAV(data) {
		return data
	}

	wrapped, err := WrapPCM(data, sampleRate, channels, bitDepth)
	if err != nil {
		return data
	}
	return wrapped
}
