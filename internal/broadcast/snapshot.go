package broadcast

import (
	"encoding/json"
	"fmt"

	"votetally/internal/domain/option"
)

// TypeOptions tags a message that carries a full tally snapshot.
const TypeOptions = "options"

// Message is the envelope pushed over the live-update channel. A snapshot is
// total: receivers replace their state with Data.
type Message struct {
	Type string         `json:"type"`
	Data []option.Count `json:"data"`
}

func NewSnapshot(counts []option.Count) Message {
	if counts == nil {
		counts = []option.Count{}
	}
	return Message{Type: TypeOptions, Data: counts}
}

func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if m.Data == nil {
		m.Data = []option.Count{}
	}
	return m, nil
}
