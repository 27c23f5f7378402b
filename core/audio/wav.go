package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Clip is a finalized, encoded recording.
type Clip struct {
	Data        []byte
	ContentType string
	Encoding    EncodingInfo
	Duration    time.Duration
}

// EncodeWAV wraps linear16 PCM in a RIFF/WAVE container.
func EncodeWAV(pcm []byte, encoding EncodingInfo) (*Clip, error) {
	if encoding.Format != EncodingLinear16 {
		return nil, fmt.Errorf("unsupported wav encoding %q", encoding.Format.Name())
	}
	if encoding.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", encoding.SampleRate)
	}
	if len(pcm)%(encoding.Format.ByteSize()*encoding.channels()) != 0 {
		return nil, fmt.Errorf("pcm length %d is not a whole number of frames", len(pcm))
	}

	channels := uint16(encoding.channels())
	bitsPerSample := uint16(encoding.Format.ByteSize() * 8)
	blockAlign := channels * bitsPerSample / 8
	byteRate := uint32(encoding.SampleRate) * uint32(blockAlign)

	header := struct {
		ChunkID       [4]byte
		ChunkSize     uint32
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32
	}{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(pcm)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   channels,
		SampleRate:    uint32(encoding.SampleRate),
		ByteRate:      byteRate,
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(pcm)),
	}

	buffer := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	if err := binary.Write(buffer, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write wav header: %w", err)
	}
	buffer.Write(pcm)

	return &Clip{
		Data:        buffer.Bytes(),
		ContentType: "audio/wav",
		Encoding:    encoding,
		Duration:    encoding.Duration(len(pcm)),
	}, nil
}
