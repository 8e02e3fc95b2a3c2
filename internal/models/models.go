package models

import (
	"encoding/json"
	"time"
)

// Statement is one element of a raw artifact: a CBOR-serialized
// statement collection awaiting rendering.
type Statement struct {
	Hash     int64      `cbor:"hash" json:"hash"`
	English  string     `cbor:"english" json:"english"`
	Evidence []Evidence `cbor:"evidence" json:"evidence"`
}

type Evidence struct {
	SourceHash int64  `cbor:"source_hash" json:"source_hash"`
	Text       string `cbor:"text" json:"text"`
	SourceAPI  string `cbor:"source_api" json:"source_api"`
	PMID       string `cbor:"pmid,omitempty" json:"pmid,omitempty"`
}

// StatementView is the ungrouped rendered form of a Statement.
// SourceCount stays nil; the pipeline does not compute source
// provenance counts.
type StatementView struct {
	Evidence      []string `json:"evidence"`
	English       string   `json:"english"`
	EvidenceCount int      `json:"evidence_count"`
	Hash          string   `json:"hash"`
	SourceCount   *int     `json:"source_count"`
}

// RenderedDocument is the cached JSON form of a statement
// collection. Stmts holds StatementView objects in ungrouped mode
// and assembler group objects in grouped mode.
type RenderedDocument struct {
	Stmts   []json.RawMessage `json:"stmts"`
	Grouped bool              `json:"grouped"`
}

type CurationKey struct {
	StmtHash   int64
	SourceHash int64
}

type CurationRecord struct {
	ID         int64     `json:"id"`
	StmtHash   int64     `json:"stmt_hash"`
	SourceHash int64     `json:"source_hash"`
	ErrorType  string    `json:"error_type"`
	Comment    string    `json:"comment"`
	Email      string    `json:"email"`
	IP         string    `json:"ip"`
	Source     string    `json:"source"`
	Date       time.Time `json:"date"`
}

func (r CurationRecord) Key() CurationKey {
	return CurationKey{StmtHash: r.StmtHash, SourceHash: r.SourceHash}
}
