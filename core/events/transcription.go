package events

// KindTranscriptionChunk identifies a chunk on the transcription topic.
const KindTranscriptionChunk Kind = "session.transcription_chunk"

// TopicTranscription is the structured-text topic carrying transcription
// chunks.
const TopicTranscription = "transcription"

// TranscriptionChunk carries a partial or final piece of a recognized speech
// segment. Only the final chunk of a segment is meant to be recorded.
type TranscriptionChunk struct {
	Base
	SegmentID string
	IsFinal   bool
	Text      string
}

// NewTranscriptionChunk creates a transcription chunk event.
func NewTranscriptionChunk(segmentID string, isFinal bool, text string) TranscriptionChunk {
	return TranscriptionChunk{
		Base:      NewBase(KindTranscriptionChunk),
		SegmentID: segmentID,
		IsFinal:   isFinal,
		Text:      text,
	}
}
