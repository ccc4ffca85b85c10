package domain

import (
	"encoding/json"
	"time"
)

// RawRecord is one element of the envelope's list, verbatim, with its byte
// span inside RawBatch.Body.
type RawRecord struct {
	Raw   json.RawMessage
	Start int
	End   int
}

// RawBatch is a decoded envelope. Body is kept byte-for-byte as loaded.
type RawBatch struct {
	Body    []byte
	Key     string // "result" or "data"
	Status  string // envelope-level status tag, lowercased; empty when absent
	Records []RawRecord
}

type SourceTag struct {
	Name      string
	Remote    bool
	Cached    bool
	FetchedAt time.Time
}

type PersistResult struct {
	Backend string `json:"backend"`
	Updated int    `json:"updated"` // flags written into the raw batch
	Changed int    `json:"changed"` // of those, how many differ from the previously stored value
	Skipped int    `json:"skipped"` // in-memory ids without a raw counterpart
	Bytes   int    `json:"bytes"`
}
