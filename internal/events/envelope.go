package events

import "encoding/json"

// Envelope is the wire frame for every socket event in both directions.
type Envelope struct {
	Event   Kind            `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Marshal wraps payload in an Envelope and encodes it.
func Marshal(kind Kind, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return json.Marshal(Envelope{Event: kind, Payload: raw})
}
