package deepgram

import "testing"

func TestDecodeChunkInterimAndFinalShareSegment(t *testing.T) {
	interim := []byte(`{"type":"Results","start":1.25,"is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`)
	final := []byte(`{"type":"Results","start":1.25,"is_final":true,"channel":{"alternatives":[{"transcript":" hello "}]}}`)

	interimChunk, ok, err := DecodeChunk(interim)
	if err != nil || !ok {
		t.Fatalf("expected interim results to decode, got ok=%t err=%v", ok, err)
	}
	finalChunk, ok, err := DecodeChunk(final)
	if err != nil || !ok {
		t.Fatalf("expected final results to decode, got ok=%t err=%v", ok, err)
	}

	if interimChunk.IsFinal {
		t.Fatalf("expected interim chunk to not be final")
	}
	if !finalChunk.IsFinal || finalChunk.Text != "hello" {
		t.Fatalf("expected final chunk \"hello\", got %+v", finalChunk)
	}
	if interimChunk.SegmentID != finalChunk.SegmentID {
		t.Fatalf("expected shared segment id, got %q and %q", interimChunk.SegmentID, finalChunk.SegmentID)
	}
}

func TestDecodeChunkSkipsNonResults(t *testing.T) {
	_, ok, err := DecodeChunk([]byte(`{"type":"SpeechStarted","timestamp":0.5}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok {
		t.Fatalf("expected speech started message to be skipped")
	}
}

func TestDecodeChunkRejectsInvalidJSON(t *testing.T) {
	if _, _, err := DecodeChunk([]byte(`{`)); err == nil {
		t.Fatalf("expected invalid payload to fail")
	}
}

func TestDecodeChunkWithoutAlternativesHasEmptyText(t *testing.T) {
	chunk, ok, err := DecodeChunk([]byte(`{"type":"Results","start":2,"is_final":true,"channel":{}}`))
	if err != nil || !ok {
		t.Fatalf("expected results to decode, got ok=%t err=%v", ok, err)
	}
	if chunk.Text != "" {
		t.Fatalf("expected empty text, got %q", chunk.Text)
	}
}
