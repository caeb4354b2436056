// Package events delivers live pipeline ticks to WebSocket viewers. The
// worker publishes a tick to the broker after each stored batch; each API
// process relays it to its local viewers, which refetch fresh data over
// the REST API. Frames carry no event payloads.
package events

import "encoding/json"

// UpdatesChannel is the broker pub/sub channel carrying tick frames from
// workers to API processes.
const UpdatesChannel = "llmscope:event_updates"

// Frame types sent to viewers.
const (
	TypeEventUpdate = "event_update"
	TypeConnected   = "connected"
	TypePong        = "pong"
)

// TickPayload is the frame shape fanned out to viewers.
type TickPayload struct {
	Type string `json:"type"`
}

// ClientMessage is the only message shape accepted from viewers.
type ClientMessage struct {
	Action string `json:"action"`
}

// Frames are static; marshal them once.
var (
	eventUpdateFrame = mustMarshal(TickPayload{Type: TypeEventUpdate})
	connectedFrame   = mustMarshal(TickPayload{Type: TypeConnected})
	pongFrame        = mustMarshal(TickPayload{Type: TypePong})
)

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
