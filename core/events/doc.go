// Package events defines the typed session event contract delivered by a
// transport connection.
//
// The set is closed:
//
//   - Established (session.established): the transport handshake completed and
//     the session is live.
//   - TrackAvailable (session.track_available): a remote audio or video track
//     can be attached to a render surface.
//   - Lost (session.lost): the connection dropped. Terminal for the
//     connection that produced it.
//   - TransportError (session.transport_error): a recoverable transport-level
//     error. Does not by itself end the session.
//   - TranscriptionChunk (session.transcription_chunk): a partial or final
//     piece of the avatar's recognized speech, keyed by segment.
//
// Events are delivered in transport order and must be processed in that order.
package events
