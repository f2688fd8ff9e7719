package model

import (
	"encoding/json"
	"time"
)

// Contract is an entry of the address book.
type Contract struct {
	Name    string `json:"contract"`
	Address string `json:"address"`
}

// RequestLog is an audit row written for every served simulation.
type RequestLog struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Log       string          `json:"log"`
	Input     json.RawMessage `json:"input,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
