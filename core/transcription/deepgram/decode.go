// Package deepgram decodes raw Deepgram live-transcription results, as some
// avatar backends forward them verbatim on the transcription topic.
package deepgram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/koscakluka/ema-avatar/core/events"
)

// FormatName is the transcription attribute value that selects this decoder.
const FormatName = "deepgram"

// DecodeChunk converts a Deepgram websocket payload into a transcription
// chunk. Payloads that are not transcript results (speech started, utterance
// end, metadata) report ok=false without an error.
func DecodeChunk(payload []byte) (chunk events.TranscriptionChunk, ok bool, err error) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &parsedMsg); err != nil {
		return chunk, false, fmt.Errorf("failed to unmarshal deepgram message: %w", err)
	}

	if api.TypeResponse(parsedMsg.Type) != api.TypeMessageResponse {
		return chunk, false, nil
	}

	var msgResp api.MessageResponse
	if err := json.Unmarshal(payload, &msgResp); err != nil {
		return chunk, false, fmt.Errorf("failed to unmarshal deepgram results: %w", err)
	}

	return ChunkFromResponse(msgResp), true, nil
}

// ChunkFromResponse maps a results message onto a chunk. Interim and final
// results for the same audio span share a start offset, which is used as the
// segment id.
func ChunkFromResponse(msgResp api.MessageResponse) events.TranscriptionChunk {
	transcript := ""
	if len(msgResp.Channel.Alternatives) > 0 {
		transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
	}

	return events.NewTranscriptionChunk(segmentID(msgResp.Start), msgResp.IsFinal, transcript)
}

func segmentID(start float64) string {
	return "dg-" + strconv.FormatFloat(start, 'f', 3, 64)
}
