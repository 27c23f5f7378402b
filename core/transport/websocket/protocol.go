package websocket

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Client → server frame types.
const (
	frameHello          = "hello"
	frameText           = "text"
	framePublishTrack   = "publish_track"
	frameUnpublishTrack = "unpublish_track"
	frameLeave          = "leave"
)

// Server → client frame types.
const (
	frameJoined     = "joined"
	frameAck        = "ack"
	frameTrack      = "track"
	frameTextStream = "text_stream"
	frameError      = "error"
)

// Transcription stream attributes.
const (
	AttributeSegmentID          = "lk.segment_id"
	AttributeTranscriptionFinal = "lk.transcription_final"
	AttributeFormat             = "format"
)

type HelloFrame struct {
	Type          string `json:"type" jsonschema:"enum=hello"`
	AutoSubscribe bool   `json:"auto_subscribe"`
}

type TextFrame struct {
	Type  string `json:"type" jsonschema:"enum=text"`
	ID    string `json:"id" jsonschema:"description=Request id echoed by the ack frame"`
	Topic string `json:"topic"`
	Text  string `json:"text"`
}

type PublishTrackFrame struct {
	Type       string `json:"type" jsonschema:"enum=publish_track"`
	ID         string `json:"id"`
	TrackID    string `json:"track_id"`
	Number     uint8  `json:"number" jsonschema:"description=Prefix byte of the track's binary frames"`
	Kind       string `json:"kind" jsonschema:"enum=audio,enum=video"`
	Source     string `json:"source"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

type UnpublishTrackFrame struct {
	Type    string `json:"type" jsonschema:"enum=unpublish_track"`
	ID      string `json:"id"`
	TrackID string `json:"track_id"`
}

type LeaveFrame struct {
	Type   string `json:"type" jsonschema:"enum=leave"`
	Reason string `json:"reason,omitempty"`
}

type JoinedFrame struct {
	Type string `json:"type" jsonschema:"enum=joined"`
}

type AckFrame struct {
	Type  string  `json:"type" jsonschema:"enum=ack"`
	ID    string  `json:"id"`
	Error *string `json:"error,omitempty"`
}

type TrackFrame struct {
	Type    string `json:"type" jsonschema:"enum=track"`
	TrackID string `json:"track_id"`
	Kind    string `json:"kind" jsonschema:"enum=audio,enum=video"`
	Number  uint8  `json:"number"`
}

type TextStreamFrame struct {
	Type       string            `json:"type" jsonschema:"enum=text_stream"`
	Topic      string            `json:"topic"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Text       string            `json:"text"`
}

type ErrorFrame struct {
	Type    string `json:"type" jsonschema:"enum=error"`
	Message string `json:"message"`
}

// Schema returns the JSON schema of every text frame, keyed by frame type.
// Binary frames are a one byte track number followed by raw media.
func Schema() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}

	frames := map[string]any{
		frameHello:          HelloFrame{},
		frameText:           TextFrame{},
		framePublishTrack:   PublishTrackFrame{},
		frameUnpublishTrack: UnpublishTrackFrame{},
		frameLeave:          LeaveFrame{},
		frameJoined:         JoinedFrame{},
		frameAck:            AckFrame{},
		frameTrack:          TrackFrame{},
		frameTextStream:     TextStreamFrame{},
		frameError:          ErrorFrame{},
	}

	schemas := make(map[string]*jsonschema.Schema, len(frames))
	for name, frame := range frames {
		schemas[name] = reflector.Reflect(frame)
	}
	return schemas
}

// SchemaJSON renders [Schema] as indented JSON.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}
