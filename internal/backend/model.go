package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Node is a graph entity record.
type Node struct {
	ID         string
	Label      string
	Kind       string
	Properties string // JSON object, may be empty
	CreatedAt  time.Time
}

// Edge is a directed relationship between two nodes.
type Edge struct {
	ID         string
	SourceID   string
	TargetID   string
	RelType    string
	Weight     float64
	Properties string // JSON object, may be empty
	CreatedAt  time.Time
}

// Document is a free-text record with JSON metadata.
type Document struct {
	ID        string
	Title     string
	Content   string
	Metadata  string // JSON object, may be empty
	CreatedAt time.Time
}

// Chunk is a document fragment carrying an embedding vector.
type Chunk struct {
	ID         string
	DocumentID string
	Position   int
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

// LedgerEntry is one applied-migration row in the version ledger.
type LedgerEntry struct {
	Version     int
	Description string
	AppliedAt   time.Time
}

// Stats aggregates record counts for one backend.
type Stats struct {
	Nodes     int
	Edges     int
	Documents int
	Chunks    int
}

var errEmptyID = errors.New("record id must not be empty")

// Validate checks the node is storable.
func (n Node) Validate() error {
	if n.ID == "" {
		return errEmptyID
	}
	if n.Label == "" {
		return fmt.Errorf("node %s: label must not be empty", n.ID)
	}
	if n.Properties != "" && !gjson.Valid(n.Properties) {
		return fmt.Errorf("node %s: properties is not valid JSON", n.ID)
	}
	return nil
}

// Validate checks the edge is storable.
func (e Edge) Validate() error {
	if e.ID == "" {
		return errEmptyID
	}
	if e.SourceID == "" || e.TargetID == "" {
		return fmt.Errorf("edge %s: source and target must not be empty", e.ID)
	}
	if e.RelType == "" {
		return fmt.Errorf("edge %s: rel_type must not be empty", e.ID)
	}
	if e.Properties != "" && !gjson.Valid(e.Properties) {
		return fmt.Errorf("edge %s: properties is not valid JSON", e.ID)
	}
	return nil
}

// Validate checks the document is storable.
func (d Document) Validate() error {
	if d.ID == "" {
		return errEmptyID
	}
	if d.Metadata != "" && !gjson.Valid(d.Metadata) {
		return fmt.Errorf("document %s: metadata is not valid JSON", d.ID)
	}
	return nil
}

// Validate checks the chunk is storable.
func (c Chunk) Validate() error {
	if c.ID == "" {
		return errEmptyID
	}
	if c.DocumentID == "" {
		return fmt.Errorf("chunk %s: document_id must not be empty", c.ID)
	}
	return nil
}
