package transcription

import (
	"strings"
	"sync"

	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/messages"
)

// MessageAppender receives the avatar messages produced from final chunks.
type MessageAppender interface {
	Append(messages.Message) (messages.Message, error)
}

// Aggregator reconciles transcription chunks into avatar messages.
//
// Partial chunks only raise the speaking indicator, their text is never
// stored. The final chunk of a segment produces at most one message no
// matter how many times it is delivered.
type Aggregator struct {
	mu sync.Mutex

	log       MessageAppender
	finalized map[string]struct{}
	speaking  bool

	onSpeakingChanged func(isSpeaking bool)
}

type AggregatorOption func(*Aggregator)

// WithSpeakingChangedCallback registers a callback invoked whenever the
// speaking indicator flips.
func WithSpeakingChangedCallback(callback func(isSpeaking bool)) AggregatorOption {
	return func(a *Aggregator) { a.onSpeakingChanged = callback }
}

func NewAggregator(log MessageAppender, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		log:       log,
		finalized: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle is a convenience wrapper over OnChunk for chunk events.
func (a *Aggregator) Handle(chunk events.TranscriptionChunk) error {
	return a.OnChunk(chunk.SegmentID, chunk.IsFinal, chunk.Text)
}

func (a *Aggregator) OnChunk(segmentID string, isFinal bool, text string) error {
	if !isFinal {
		a.setSpeaking(true)
		return nil
	}

	// A blank final does not claim the segment, so a later final carrying
	// text for the same id is still recorded.
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		a.setSpeaking(false)
		return nil
	}

	a.mu.Lock()
	if _, done := a.finalized[segmentID]; done {
		a.mu.Unlock()
		return nil
	}
	a.finalized[segmentID] = struct{}{}
	a.mu.Unlock()

	var err error
	if a.log != nil {
		_, err = a.log.Append(messages.NewAvatarMessage(trimmed))
	}
	a.setSpeaking(false)
	return err
}

func (a *Aggregator) IsSpeaking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speaking
}

// IsFinalized reports whether segmentID already produced its final chunk.
func (a *Aggregator) IsFinalized(segmentID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.finalized[segmentID]
	return ok
}

// Reset forgets finalized segments and clears the speaking indicator. It is
// called when a new session starts.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.finalized = map[string]struct{}{}
	a.mu.Unlock()

	a.setSpeaking(false)
}

func (a *Aggregator) setSpeaking(isSpeaking bool) {
	a.mu.Lock()
	changed := a.speaking != isSpeaking
	a.speaking = isSpeaking
	callback := a.onSpeakingChanged
	a.mu.Unlock()

	if changed && callback != nil {
		callback(isSpeaking)
	}
}
