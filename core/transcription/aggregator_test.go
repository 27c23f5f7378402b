package transcription

import (
	"fmt"
	"testing"

	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/messages"
)

func TestPartialThenFinalChunkProducesOneAvatarMessage(t *testing.T) {
	log := messages.NewLog()
	aggregator := NewAggregator(log)

	if err := aggregator.OnChunk("s1", false, "He"); err != nil {
		t.Fatalf("expected partial chunk to succeed, got %v", err)
	}
	if !aggregator.IsSpeaking() {
		t.Fatalf("expected partial chunk to set speaking")
	}
	if log.Len() != 0 {
		t.Fatalf("expected partial chunk to not produce a message, got %d", log.Len())
	}

	if err := aggregator.OnChunk("s1", true, "Hello"); err != nil {
		t.Fatalf("expected final chunk to succeed, got %v", err)
	}
	if aggregator.IsSpeaking() {
		t.Fatalf("expected final chunk to clear speaking")
	}

	got := log.Messages()
	if len(got) != 1 || got[0].Sender != messages.SenderAvatar || got[0].Text != "Hello" {
		t.Fatalf("expected one avatar message \"Hello\", got %+v", got)
	}
}

func TestDistinctFinalSegmentsAppendInArrivalOrder(t *testing.T) {
	log := messages.NewLog()
	aggregator := NewAggregator(log)

	for i := range 5 {
		chunk := events.NewTranscriptionChunk(fmt.Sprintf("s%d", i), true, fmt.Sprintf("line %d", i))
		if err := aggregator.Handle(chunk); err != nil {
			t.Fatalf("expected chunk %d to succeed, got %v", i, err)
		}
	}

	got := log.Messages()
	if len(got) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(got))
	}
	for i, message := range got {
		if want := fmt.Sprintf("line %d", i); message.Text != want {
			t.Fatalf("expected message %d to be %q, got %q", i, want, message.Text)
		}
	}
}

func TestDuplicateFinalChunkIsIgnored(t *testing.T) {
	log := messages.NewLog()
	aggregator := NewAggregator(log)

	_ = aggregator.OnChunk("s1", true, "Hello")
	_ = aggregator.OnChunk("s1", true, "Hello again")

	if log.Len() != 1 {
		t.Fatalf("expected duplicate final chunk to be ignored, got %d messages", log.Len())
	}
	if !aggregator.IsFinalized("s1") {
		t.Fatalf("expected segment to be tracked as finalized")
	}
}

func TestFinalChunkTextIsTrimmedAndEmptyIsDropped(t *testing.T) {
	log := messages.NewLog()
	aggregator := NewAggregator(log)

	_ = aggregator.OnChunk("s1", false, "..")
	_ = aggregator.OnChunk("s1", true, "   ")
	if log.Len() != 0 {
		t.Fatalf("expected whitespace-only final chunk to be dropped, got %d", log.Len())
	}
	if aggregator.IsSpeaking() {
		t.Fatalf("expected empty final chunk to still clear speaking")
	}

	_ = aggregator.OnChunk("s2", true, "  padded  ")
	if last, _ := log.Last(); last.Text != "padded" {
		t.Fatalf("expected trimmed text \"padded\", got %q", last.Text)
	}
}

func TestBlankFinalDoesNotSwallowLaterTextForSameSegment(t *testing.T) {
	log := messages.NewLog()
	aggregator := NewAggregator(log)

	_ = aggregator.OnChunk("s1", true, "")
	if aggregator.IsFinalized("s1") {
		t.Fatalf("expected blank final chunk to leave the segment open")
	}
	_ = aggregator.OnChunk("s1", true, "Hello")
	_ = aggregator.OnChunk("s1", true, "Hello")

	if log.Len() != 1 {
		t.Fatalf("expected exactly one message, got %d", log.Len())
	}
	if last, _ := log.Last(); last.Text != "Hello" {
		t.Fatalf("expected \"Hello\", got %q", last.Text)
	}
}

func TestSpeakingChangedCallbackFiresOnTransitionsOnly(t *testing.T) {
	transitions := []bool{}
	aggregator := NewAggregator(messages.NewLog(), WithSpeakingChangedCallback(func(isSpeaking bool) {
		transitions = append(transitions, isSpeaking)
	}))

	_ = aggregator.OnChunk("s1", false, "a")
	_ = aggregator.OnChunk("s1", false, "ab")
	_ = aggregator.OnChunk("s1", true, "abc")

	if len(transitions) != 2 || !transitions[0] || transitions[1] {
		t.Fatalf("expected transitions [true false], got %v", transitions)
	}
}

func TestResetForgetsFinalizedSegments(t *testing.T) {
	log := messages.NewLog()
	aggregator := NewAggregator(log)

	_ = aggregator.OnChunk("s1", true, "first session")
	aggregator.Reset()
	_ = aggregator.OnChunk("s1", true, "second session")

	if log.Len() != 2 {
		t.Fatalf("expected segment ids to be scoped to a session, got %d messages", log.Len())
	}
}
