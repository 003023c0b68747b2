// Package audio converts inbound client audio into the PCM format expected by
// the transcription provider.
//
// The mobile client streams 16 kHz mono Opus packets at 20 ms frame size over
// the WebSocket's binary channel; Decoder turns each packet into little-endian
// int16 PCM bytes.
package audio

import (
	"fmt"

	"layeh.com/gopus"
)

// Client audio format: 16 kHz mono Opus at 20 ms frame size, matching the
// STT-optimised sample rate so no resampling is needed server-side.
const (
	SampleRate  = 16000
	Channels    = 1
	frameSizeMs = 20
	// frameSize is the number of samples per channel per 20 ms frame.
	frameSize = SampleRate * frameSizeMs / 1000 // 320
)

// Decoder wraps a gopus Opus decoder for a single client stream. Each
// connection gets its own Decoder to maintain decoder state correctly across
// consecutive packets. Not safe for concurrent use; callers serialise packets
// per connection.
type Decoder struct {
	dec *gopus.Decoder
}

// NewDecoder creates a Decoder configured for the client audio format.
func NewDecoder() (*Decoder, error) {
	dec, err := gopus.NewDecoder(SampleRate, Channels)
	if err != nil {
		return nil, fmt.Errorf("audio: create opus decoder: %w", err)
	}
	return &Decoder{dec: dec}, nil
}

// Decode decodes an Opus packet into PCM int16 samples and returns the result
// as a byte slice (little-endian int16s).
func (d *Decoder) Decode(packet []byte) ([]byte, error) {
	pcm, err := d.dec.Decode(packet, frameSize, false)
	if err != nil {
		return nil, fmt.Errorf("audio: opus decode: %w", err)
	}
	return int16sToBytes(pcm), nil
}

// int16sToBytes converts a slice of int16 PCM samples to little-endian bytes.
func int16sToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}
