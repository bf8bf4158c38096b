package audio

// Container signature offsets follow the RIFF and MPEG specs: a WAV file
// starts with "RIFF" + 4 size bytes + "WAVE"; an MP3 starts with an "ID3"
// tag or contains an 0xFF 0xEx frame-sync pattern.

// IsWAV reports whether data begins with a RIFF/WAVE container header
func IsWAV(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	return string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// IsMP3 reports whether data carries an ID3 tag or an MPEG frame-sync pattern
func IsMP3(data []byte) bool {
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return true
	}
	for i := 0; i+1 < len(data); i++ {
		if data[i] == 0xFF && data[i+1]&0xE0 == 0xE0 {
			return true
		}
	}
	return false
}

// LooksLikeAudio applies the acceptance heuristic for reassembled payloads:
// anything shorter than minBytes is rejected outright; recognized WAV or MP3
// signatures are accepted; anything else is accepted only when it is large
// enough (above rawFallbackBytes) to plausibly be raw PCM
func LooksLikeAudio(data []byte, minBytes, rawFallbackBytes int) bool {
	if len(data) < minBytes {
		return false
	}
	if IsWAV(data) {
		return true
	}
	if IsMP3(data) {
		return true
	}
	return len(data) > rawFallbackBytes
}
