package model

import "time"

// Run is the persisted summary of one description run.
type Run struct {
	ID           string         `json:"id"`
	InputName    string         `json:"inputName"`
	Features     int            `json:"features"`
	Classified   int            `json:"classified"`
	Ignored      int            `json:"ignored"`
	Unclassified int            `json:"unclassified"`
	ClassCounts  map[string]int `json:"classCounts"`
	Elapsed      time.Duration  `json:"elapsed"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Artifact is one serialized output file of a run.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}
