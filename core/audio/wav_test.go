package audio

import (
	"encoding/binary"
	"testing"
)

func TestWAVHeader(t *testing.T) {
	samples := make([]byte, 1600)
	wav, err := WAV(samples, GetDefaultEncodingInfo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(wav) != 44+len(samples) {
		t.Fatalf("expected %d bytes, got %d", 44+len(samples), len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatalf("unexpected chunk ids")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != DefaultSampleRate {
		t.Fatalf("expected sample rate %d, got %d", DefaultSampleRate, got)
	}
	if got := binary.LittleEndian.Uint16(wav[34:36]); got != 16 {
		t.Fatalf("expected 16 bits per sample, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(samples)) {
		t.Fatalf("expected data size %d, got %d", len(samples), got)
	}
}

func TestWAVMulaw(t *testing.T) {
	wav, err := WAV([]byte{0xFF, 0xFF}, EncodingInfo{SampleRate: 8000, Format: EncodingMulaw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := binary.LittleEndian.Uint16(wav[20:22]); got != 7 {
		t.Fatalf("expected mulaw format tag, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != 8000 {
		t.Fatalf("expected byte rate 8000, got %d", got)
	}
}

func TestWAVRejectsUnknownEncoding(t *testing.T) {
	if _, err := WAV(nil, EncodingInfo{SampleRate: 8000, Format: "opus"}); err == nil {
		t.Fatalf("expected an error for opus")
	}
	if _, err := WAV(nil, EncodingInfo{}); err == nil {
		t.Fatalf("expected an error for missing encoding info")
	}
}
