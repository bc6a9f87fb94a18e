package fanout

import (
	"encoding/json"
	"time"

	"github.com/brickfield/appraisal/internal/domain/model"
)

// Message is the envelope for everything pushed to subscribers.
type Message struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

func encode(msgType string, data any) string {
	msg := Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	out, err := json.Marshal(msg)
	if err != nil {
		return `{"type":"error"}`
	}
	return string(out)
}

// ValuationUpdate encodes a computed valuation broadcast.
func ValuationUpdate(propertyID string, result model.EnsembleResult) string {
	return encode("valuation_update", map[string]any{
		"property_id": propertyID,
		"valuation":   result,
	})
}

// ConnectionAck encodes the greeting sent to a freshly connected subscriber.
func ConnectionAck(active int) string {
	return encode("connection", map[string]any{
		"status":             "connected",
		"active_connections": active,
	})
}
