package models

import "time"

// Event is the envelope exchanged on the vault's Kafka topics.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // raw-text, anonymized-text
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
