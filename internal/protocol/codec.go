package protocol

import (
	"encoding/json"
	"fmt"
)

// DecodeClient parses one wire frame into a ClientMessage envelope.
// A decode failure does not end the session: the transport reports it
// as a protocol anomaly and keeps reading. An envelope that parses but
// carries no variant is left for the dispatcher to classify.
func DecodeClient(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode client message: %w", err)
	}
	return &msg, nil
}

// EncodeServer serializes a ServerMessage envelope into a wire frame.
func EncodeServer(msg *ServerMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode server message: %w", err)
	}
	return data, nil
}
