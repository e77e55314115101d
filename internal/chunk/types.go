package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Chunk size defaults (based on 2025 RAG research)
const (
	DefaultMaxChunkTokens = 512 // Optimal for 85-90% recall
	DefaultOverlapTokens  = 64  // ~12.5% overlap
	TokensPerChar         = 4   // Rough approximation: 4 chars = 1 token
)

// Span is a half-open byte range [Start, End) into the source.
type Span struct {
	Start uint32
	End   uint32
}

// Len returns the span width in bytes.
func (s Span) Len() uint32 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Contains reports whether s strictly contains other: other fits inside s
// and the two spans are not identical.
func (s Span) Contains(other Span) bool {
	return s.Start <= other.Start && other.End <= s.End && s != other
}

// Chunk is a retrievable unit of content. Chunks are immutable once the
// engine returns them; consumers needing relationships build an index by
// ID, never by pointer.
type Chunk struct {
	ID            string            `json:"id"`                       // SHA256(file + span + content)[:16]
	FileID        string            `json:"file_id"`                  // Caller-provided file identity (usually a relative path)
	Language      string            `json:"language"`                 // go, typescript, python, etc.
	Type          string            `json:"type"`                     // Resolved node kind, or "window"/"text"
	StartByte     uint32            `json:"start_byte"`               // Byte span [StartByte, EndByte)
	EndByte       uint32            `json:"end_byte"`
	StartLine     int               `json:"start_line"`               // 1-indexed
	EndLine       int               `json:"end_line"`                 // Inclusive
	Content       string            `json:"content"`                  // Source slice covered by the span
	ParentContext string            `json:"parent_context,omitempty"` // Lexical nesting path, e.g. "Outer.Inner"
	ParentID      string            `json:"parent_id,omitempty"`      // Nearest enclosing chunk, "" at top level
	ChildIDs      []string          `json:"child_ids,omitempty"`      // Directly nested chunks, in source order
	Metadata      map[string]string `json:"metadata,omitempty"`       // Free-form metadata bag
}

// Span returns the chunk's byte span.
func (c *Chunk) Span() Span {
	return Span{Start: c.StartByte, End: c.EndByte}
}

// Window is a chunk produced by uniform scanning rather than syntax
// awareness. Windows from one run jointly cover the entire input.
type Window struct {
	Chunk
	Position int  // 0-based index in the window sequence
	Unit     Unit // Unit the window was measured in
}

// Strategy identifies how a file was chunked.
type Strategy string

const (
	StrategyAST    Strategy = "ast"
	StrategyWindow Strategy = "window"
	StrategyHybrid Strategy = "hybrid"
)

// FallbackDecision records, per file, which chunking path was taken and
// why. Created once, never mutated.
type FallbackDecision struct {
	Strategy      Strategy
	Language      string
	Rationale     string
	TokenEstimate int
}

// Result is the per-file output of the engine: the ordered chunk list,
// the recorded decision, and any warnings accumulated along the way.
// A Result with warnings is still a usable result; one bad file never
// fails a batch.
type Result struct {
	FileID   string
	Chunks   []*Chunk
	Decision FallbackDecision
	Warnings []Warning
}

// FileInput is a single file handed to the engine.
type FileInput struct {
	Path     string // Relative path, used as FileID
	Content  []byte // Raw source bytes
	Language string // Optional; detected from the extension when empty
}

// chunkID derives a stable content-addressable chunk ID. Including the
// span keeps two identical declarations in one file distinct.
func chunkID(fileID string, span Span, content string) string {
	h := sha256.Sum256([]byte(content))
	input := fmt.Sprintf("%s:%d:%d:%s", fileID, span.Start, span.End, hex.EncodeToString(h[:])[:16])
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}
