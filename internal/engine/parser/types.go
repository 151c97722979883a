package parser

import (
	"time"
)

// File is the outcome of binding one translation unit.
type File struct {
	Path         string        `json:"path"`
	Language     string        `json:"language"`
	Declarations []Declaration `json:"declarations"`
	References   []Reference   `json:"references"`
	Diagnostics  []Diagnostic  `json:"diagnostics"`
	ParsedAt     time.Time     `json:"parsed_at"`
}

type Declaration struct {
	ID            uint64   `json:"id"`
	Name          string   `json:"name"`
	QualifiedName string   `json:"qualified_name"`
	Kind          string   `json:"kind"`
	Type          string   `json:"type,omitempty"` // qualified name of the declared type
	Bases         []string `json:"bases,omitempty"`
	Static        bool     `json:"static,omitempty"`
	Location      Location `json:"location"`
}

// Reference is one name use and what it was bound to.
type Reference struct {
	Name     string   `json:"name"`
	Context  string   `json:"context"`
	Resolved bool     `json:"resolved"`
	Target   string   `json:"target,omitempty"`
	TargetID uint64   `json:"target_id,omitempty"`
	Location Location `json:"location"`
}

// Diagnostic is a failed lookup: an undeclared, ambiguous or circularly
// inherited name.
type Diagnostic struct {
	Code       string   `json:"code"`
	Symbol     string   `json:"symbol"`
	Message    string   `json:"message"`
	Candidates []string `json:"candidates,omitempty"`
	Location   Location `json:"location"`
}

type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Reference contexts name the kind of lookup that produced a Reference.
const (
	RefContextLexical    = "lexical"
	RefContextElaborated = "elaborated"
	RefContextQualified  = "qualified"
	RefContextMember     = "member"
	RefContextBase       = "base"
	RefContextNested     = "nested"
)
