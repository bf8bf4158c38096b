package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWrapPCM(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x11, 0x22}, 512)

	wrapped, err := WrapPCM(pcm, 44100, 1, 16)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(wrapped) != wavHeaderSize+len(pcm) {
		t.Errorf("Expected %d bytes, got %d", wavHeaderSize+len(pcm), len(wrapped))
	}

	if string(wrapped[0:4]) != "RIFF" {
		t.Errorf("Expected RIFF marker, got %q", wrapped[0:4])
	}
	if got := binary.LittleEndian.Uint32(wrapped[4:8]); got != uint32(36+len(pcm)) {
		t.Errorf("Expected chunk size %d, got %d", 36+len(pcm), got)
	}
	if string(wrapped[8:12]) != "WAVE" {
		t.Errorf("Expected WAVE marker, got %q", wrapped[8:12])
	}
	if string(wrapped[12:16]) != "fmt " {
		t.Errorf("Expected fmt marker, got %q", wrapped[12:16])
	}
	if got := binary.LittleEndian.Uint32(wrapped[16:20]); got != 16 {
		t.Errorf("Expected fmt chunk size 16, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(wrapped[20:22]); got != 1 {
		t.Errorf("Expected PCM format 1, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(wrapped[22:24]); got != 1 {
		t.Errorf("Expected 1 channel, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(wrapped[24:28]); got != 44100 {
		t.Errorf("Expected sample rate 44100, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(wrapped[28:32]); got != 88200 {
		t.Errorf("Expected byte rate 88200, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(wrapped[32:34]); got != 2 {
		t.Errorf("Expected block align 2, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(wrapped[34:36]); got != 16 {
		t.Errorf("Expected bit depth 16, got %d", got)
	}
	if string(wrapped[36:40]) != "data" {
		t.Errorf("Expected data marker, got %q", wrapped[36:40])
	}
	if got := binary.LittleEndian.Uint32(wrapped[40:44]); got != uint32(len(pcm)) {
		t.Errorf("Expected data size %d, got %d", len(pcm), got)
	}

	if !bytes.Equal(wrapped[wavHeaderSize:], pcm) {
		t.Error("Expected payload bytes to be carried through unchanged")
	}
}

func TestWrapPCM_Stereo(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x00}, 4096)

	wrapped, err := WrapPCM(pcm, 8000, 2, 16)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := binary.LittleEndian.Uint16(wrapped[22:24]); got != 2 {
		t.Errorf("Expected 2 channels, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(wrapped[28:32]); got != 32000 {
		t.Errorf("Expected byte rate 32000, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(wrapped[32:34]); got != 4 {
		t.Errorf("Expected block align 4, got %d", got)
	}
}

func TestWrapPCM_Errors(t *testing.T) {
	if _, err := WrapPCM(nil, 44100, 1, 16); err == nil {
		t.Error("Expected error for empty payload")
	}

	// 17 bytes is not a whole number of 16-bit mono frames
	if _, err := WrapPCM(make([]byte, 17), 44100, 1, 16); err == nil {
		t.Error("Expected error for odd-length 16-bit payload")
	}

	if _, err := WrapPCM(make([]byte, 16), 0, 1, 16); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestNormalize(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x7F, 0x80}, 256)

	normalized := Normalize(pcm, 44100, 1, 16)
	if !IsWAV(normalized) {
		t.Error("Expected raw payload to be wrapped as WAV")
	}
	if len(normalized) != wavHeaderSize+len(pcm) {
		t.Errorf("Expected %d bytes, got %d", wavHeaderSize+len(pcm), len(normalized))
	}

	// Already-wrapped data passes through untouched
	again := Normalize(normalized, 44100, 1, 16)
	if !bytes.Equal(again, normalized) {
		t.Error("Expected WAV payload to pass through unchanged")
	}
}

func TestNormalize_OddLengthPassthrough(t *testing.T) {
	odd := make([]byte, 101)
	for i := range odd {
		odd[i] = byte(i)
	}

	normalized := Normalize(odd, 44100, 1, 16)
	if !bytes.Equal(normalized, odd) {
		t.Error("Expected incompatible payload to pass through unchanged")
	}
}
