package models

import "encoding/json"

// Reply is what a DWN answers to a processed message.
type Reply struct {
	Status  Status            `json:"status"`
	Entries []json.RawMessage `json:"entries,omitempty"`
}
