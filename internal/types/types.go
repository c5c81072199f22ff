package types

import (
	jsoniter "github.com/json-iterator/go"

	pub "github.com/DoyleJ11/scratch-race-backend/pkg/types"
)

type ClientMessage struct {
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	Horse     int    `json:"horse,omitempty"`
	HorseName string `json:"horse_name,omitempty"`
	Pool      string `json:"pool,omitempty"`
	Amount    string `json:"amount,omitempty"`
	TicketID  string `json:"ticket_id,omitempty"`
}

type ServerMessage struct {
	Type    string              `json:"type"` // see pkg/types message names
	Version int64               `json:"version,omitempty"`
	State   *pub.Snapshot       `json:"state,omitempty"`
	Result  jsoniter.RawMessage `json:"result,omitempty"`
	Code    string              `json:"code,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// Result builds a typed reply around any JSON encodable payload.
func Result(kind string, v any) (ServerMessage, error) {
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		return ServerMessage{}, err
	}
	return ServerMessage{Type: kind, Result: raw}, nil
}

func Error(code string, err error) ServerMessage {
	return ServerMessage{Type: pub.MsgError, Code: code, Error: err.Error()}
}
