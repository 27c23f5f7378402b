package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-avatar/core/audio"
)

var _ audio.Microphone = (*Microphone)(nil)

// Microphone captures from the default PortAudio input device.
type Microphone struct {
	bufferSize int

	mu   sync.Mutex
	held *handle
}

func NewMicrophone(bufferSize int) *Microphone {
	if bufferSize <= 0 {
		bufferSize = audio.DefaultSampleRate / 50
	}
	return &Microphone{bufferSize: bufferSize}
}

func (m *Microphone) Acquire(ctx context.Context, onAudio func(frame []byte)) (audio.MicrophoneHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held != nil {
		return nil, fmt.Errorf("%w: input stream already open", audio.ErrDeviceUnavailable)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize PortAudio: %w", audio.ErrDeviceUnavailable, err)
	}

	in := make([]int16, m.bufferSize)
	stream, err := portaudio.OpenDefaultStream(audio.DefaultChannels, 0, audio.DefaultSampleRate, m.bufferSize, in)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: failed to open PortAudio stream: %w", audio.ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: failed to start PortAudio stream: %w", audio.ErrPermissionDenied, err)
	}

	h := &handle{
		microphone: m,
		stream:     stream,
		in:         in,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	m.held = h
	go h.read(onAudio)

	return h, nil
}

type handle struct {
	microphone *Microphone
	stream     *portaudio.Stream
	in         []int16

	stop chan struct{}
	done chan struct{}
}

func (h *handle) read(onAudio func(frame []byte)) {
	defer close(h.done)

	audioBuffer := bytes.Buffer{}
	for {
		select {
		case <-h.stop:
			return
		default:
		}

		if err := h.stream.Read(); err != nil {
			log.Printf("Failed to read from PortAudio stream: %v", err)
			continue
		}

		audioBuffer.Reset()
		_ = binary.Write(&audioBuffer, binary.LittleEndian, h.in)
		if onAudio != nil {
			onAudio(audioBuffer.Bytes())
		}
	}
}

func (h *handle) EncodingInfo() audio.EncodingInfo { return audio.GetDefaultEncodingInfo() }

func (h *handle) Release() error {
	m := h.microphone
	m.mu.Lock()
	if m.held != h {
		m.mu.Unlock()
		return audio.ErrAlreadyReleased
	}
	m.held = nil
	m.mu.Unlock()

	close(h.stop)
	<-h.done

	var err error
	if stopErr := h.stream.Stop(); stopErr != nil {
		err = fmt.Errorf("failed to stop PortAudio stream: %w", stopErr)
	}
	h.stream.Close()
	portaudio.Terminate()
	return err
}
