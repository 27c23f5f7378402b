package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestDurationUsesEncodingRate(t *testing.T) {
	encoding := GetDefaultEncodingInfo()

	if got := encoding.Duration(DefaultSampleRate * 2); got != time.Second {
		t.Fatalf("expected one second of audio, got %v", got)
	}
	if got := (EncodingInfo{SampleRate: 8000, Format: "opus"}).Duration(100); got != 0 {
		t.Fatalf("expected unknown format to have zero duration, got %v", got)
	}
}

func TestEncodeWAVWritesHeader(t *testing.T) {
	pcm := make([]byte, 3200)
	clip, err := EncodeWAV(pcm, GetDefaultEncodingInfo())
	if err != nil {
		t.Fatalf("expected encoding to succeed, got %v", err)
	}

	if len(clip.Data) != 44+len(pcm) {
		t.Fatalf("expected %d bytes, got %d", 44+len(pcm), len(clip.Data))
	}
	if string(clip.Data[0:4]) != "RIFF" || string(clip.Data[8:12]) != "WAVE" || string(clip.Data[36:40]) != "data" {
		t.Fatalf("expected RIFF/WAVE/data markers, got %q", clip.Data[:44])
	}
	if got := binary.LittleEndian.Uint32(clip.Data[24:28]); got != DefaultSampleRate {
		t.Fatalf("expected sample rate %d, got %d", DefaultSampleRate, got)
	}
	if got := binary.LittleEndian.Uint32(clip.Data[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("expected data size %d, got %d", len(pcm), got)
	}
	if clip.Duration != 100*time.Millisecond {
		t.Fatalf("expected 100ms clip, got %v", clip.Duration)
	}
}

func TestEncodeWAVRejectsUnsupportedInput(t *testing.T) {
	if _, err := EncodeWAV([]byte{0}, EncodingInfo{SampleRate: 8000, Format: EncodingMulaw}); err == nil {
		t.Fatalf("expected mulaw to be rejected")
	}
	if _, err := EncodeWAV([]byte{0, 0, 0}, GetDefaultEncodingInfo()); err == nil {
		t.Fatalf("expected partial frame to be rejected")
	}
}
