package chunk

import (
	"fmt"
	"math"
	"strings"
)

// Unit is the measurement unit for sliding windows.
type Unit string

const (
	UnitCharacters Unit = "characters"
	UnitLines      Unit = "lines"
	UnitTokens     Unit = "tokens"
	UnitBytes      Unit = "bytes"
)

// OverlapStrategy controls how consecutive windows overlap.
type OverlapStrategy string

const (
	OverlapNone       OverlapStrategy = "none"
	OverlapFixed      OverlapStrategy = "fixed"
	OverlapPercentage OverlapStrategy = "percentage"
	OverlapSemantic   OverlapStrategy = "semantic"
)

// WindowConfig configures the sliding window engine. Invalid combinations
// are rejected at configuration time, never mid-run.
type WindowConfig struct {
	// WindowSize is the window length in the configured unit.
	WindowSize int

	// Unit selects the scanning unit (characters, lines, tokens, bytes).
	Unit Unit

	// OverlapStrategy selects how the next window's start is computed.
	OverlapStrategy OverlapStrategy

	// OverlapAmount is the overlap in units for fixed/semantic, or a
	// fraction of the window size (0..1) for percentage.
	OverlapAmount float64

	// MinWindowSize/MaxWindowSize clamp dynamic sizing. Both required
	// when DynamicSizing is set.
	MinWindowSize int
	MaxWindowSize int

	// PreserveBoundaries snaps window ends to nearby natural boundaries
	// (paragraph/sentence breaks for prose, blank lines for code).
	PreserveBoundaries bool

	// DynamicSizing shrinks windows toward MinWindowSize for dense
	// content and grows them toward MaxWindowSize for sparse content.
	DynamicSizing bool
}

// DefaultWindowConfig returns a character-based config with fixed overlap.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		WindowSize:      DefaultMaxChunkTokens * TokensPerChar,
		Unit:            UnitCharacters,
		OverlapStrategy: OverlapFixed,
		OverlapAmount:   float64(DefaultOverlapTokens * TokensPerChar),
	}
}

// Validate checks the configuration. All violations surface here as
// configuration errors so a running batch can never hit them.
func (c WindowConfig) Validate() error {
	if c.WindowSize <= 0 {
		return NewError(ErrCodeWindowConfig, "window size must be positive", nil)
	}
	switch c.Unit {
	case UnitCharacters, UnitLines, UnitTokens, UnitBytes:
	default:
		return NewError(ErrCodeWindowConfig, fmt.Sprintf("unknown unit %q", c.Unit), nil)
	}
	switch c.OverlapStrategy {
	case OverlapNone:
	case OverlapFixed, OverlapSemantic:
		if c.OverlapAmount < 0 {
			return NewError(ErrCodeWindowConfig, "overlap amount must be non-negative", nil)
		}
		if int(c.OverlapAmount) >= c.WindowSize {
			return NewError(ErrCodeWindowConfig, "overlap amount must be less than window size", nil)
		}
	case OverlapPercentage:
		if c.OverlapAmount < 0 || c.OverlapAmount >= 1 {
			return NewError(ErrCodeWindowConfig, "percentage overlap must be in [0, 1)", nil)
		}
	default:
		return NewError(ErrCodeWindowConfig, fmt.Sprintf("unknown overlap strategy %q", c.OverlapStrategy), nil)
	}
	if c.DynamicSizing {
		if c.MinWindowSize <= 0 || c.MaxWindowSize <= 0 {
			return NewError(ErrCodeWindowConfig, "dynamic sizing requires min and max window sizes", nil)
		}
	}
	if c.MinWindowSize > 0 && c.MaxWindowSize > 0 && c.MinWindowSize > c.MaxWindowSize {
		return NewError(ErrCodeWindowConfig, "min window size exceeds max window size", nil)
	}
	return nil
}

// WindowEngine produces sliding windows over raw text. It is a pure
// function of (input, config): no shared mutable state, safe to invoke
// concurrently across files.
type WindowEngine struct {
	cfg   WindowConfig
	count TokenCounter
}

// NewWindowEngine validates the config and builds an engine. A nil counter
// defaults to the chars/4 heuristic (only exercised for the tokens unit
// and dynamic sizing).
func NewWindowEngine(cfg WindowConfig, count TokenCounter) (*WindowEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if count == nil {
		count = HeuristicCounter
	}
	return &WindowEngine{cfg: cfg, count: count}, nil
}

// Windows scans the file into windows. The union of all window spans
// equals [0, len(content)) with no gaps; overlap never exceeds the window
// size, so forward progress is guaranteed.
func (e *WindowEngine) Windows(file *FileInput) []Window {
	content := string(file.Content)
	if len(content) == 0 {
		return nil
	}

	offs := elementOffsets(content, e.cfg.Unit, e.count)
	n := len(offs)
	bounds := boundaryElements(content, offs)

	var windows []Window
	start := 0
	for start < n {
		size := e.windowSize(content, offs, start)
		end := start + size
		if end > n {
			end = n
		}

		if e.cfg.PreserveBoundaries && end < n {
			end = snapToBoundary(bounds, start, end, n, size)
		}

		windows = append(windows, e.makeWindow(file, content, offs, start, end, len(windows)))

		if end >= n {
			break
		}
		start = e.nextStart(bounds, start, end, size)
	}
	return windows
}

// windowSize resolves the effective size for the window starting at the
// given element, applying dynamic sizing when configured.
func (e *WindowEngine) windowSize(content string, offs []int, start int) int {
	size := e.cfg.WindowSize
	if !e.cfg.DynamicSizing {
		return size
	}

	// Sample content density over the candidate region: long average
	// lines mean dense content, so shrink; short lines grow the window.
	const referenceLineLen = 60.0
	sampleEnd := start + size
	if sampleEnd > len(offs) {
		sampleEnd = len(offs)
	}
	from := offs[start]
	to := len(content)
	if sampleEnd < len(offs) {
		to = offs[sampleEnd]
	}
	sample := content[from:to]
	lines := strings.Count(sample, "\n") + 1
	avg := float64(len(sample)) / float64(lines)
	if avg <= 0 {
		return size
	}

	scaled := int(math.Round(float64(size) * referenceLineLen / avg))
	if scaled < e.cfg.MinWindowSize {
		scaled = e.cfg.MinWindowSize
	}
	if scaled > e.cfg.MaxWindowSize {
		scaled = e.cfg.MaxWindowSize
	}
	return scaled
}

// nextStart computes the following window's start element per the overlap
// strategy, always strictly after the current start.
func (e *WindowEngine) nextStart(bounds []bool, start, end, size int) int {
	next := end
	switch e.cfg.OverlapStrategy {
	case OverlapNone:
	case OverlapFixed:
		next = end - int(e.cfg.OverlapAmount)
	case OverlapPercentage:
		next = end - int(math.Round(float64(size)*e.cfg.OverlapAmount))
	case OverlapSemantic:
		target := end - int(e.cfg.OverlapAmount)
		next = nearestBoundaryAtOrBefore(bounds, target, start)
	}
	if next <= start {
		next = start + 1
	}
	return next
}

// makeWindow materializes the element range [start, end) as a window.
func (e *WindowEngine) makeWindow(file *FileInput, content string, offs []int, start, end, position int) Window {
	from := offs[start]
	to := len(content)
	if end < len(offs) {
		to = offs[end]
	}
	text := content[from:to]
	span := Span{Start: uint32(from), End: uint32(to)}

	startLine := 1 + strings.Count(content[:from], "\n")
	// A trailing newline terminates the last covered line rather than
	// starting a new one.
	endLine := startLine + strings.Count(strings.TrimSuffix(text, "\n"), "\n")

	return Window{
		Chunk: Chunk{
			ID:        chunkID(file.Path, span, text),
			FileID:    file.Path,
			Language:  file.Language,
			Type:      "window",
			StartByte: span.Start,
			EndByte:   span.End,
			StartLine: startLine,
			EndLine:   endLine,
			Content:   text,
			Metadata: map[string]string{
				"unit":     string(e.cfg.Unit),
				"strategy": string(e.cfg.OverlapStrategy),
			},
		},
		Position: position,
		Unit:     e.cfg.Unit,
	}
}

// elementOffsets maps the input to element start offsets for the unit.
// Element i covers [offs[i], offs[i+1]) with the final element running to
// the end of the input, so elements jointly cover every byte.
func elementOffsets(content string, unit Unit, count TokenCounter) []int {
	switch unit {
	case UnitBytes:
		offs := make([]int, len(content))
		for i := range offs {
			offs[i] = i
		}
		return offs
	case UnitCharacters:
		offs := make([]int, 0, len(content))
		for i := range content {
			offs = append(offs, i)
		}
		return offs
	case UnitLines:
		offs := []int{0}
		for i := 0; i < len(content); i++ {
			if content[i] == '\n' && i+1 < len(content) {
				offs = append(offs, i+1)
			}
		}
		return offs
	case UnitTokens:
		// Token elements start at each run of non-space; leading and
		// trailing whitespace attach to the neighboring token so coverage
		// holds.
		offs := []int{0}
		inToken := !isSpaceByte(content[0])
		for i := 1; i < len(content); i++ {
			sp := isSpaceByte(content[i])
			if inToken && sp {
				inToken = false
			} else if !inToken && !sp {
				offs = append(offs, i)
				inToken = true
			}
		}
		return offs
	}
	return []int{0}
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// boundaryElements marks, per element, whether a natural boundary occurs
// at the element's start: a blank line (paragraph break) or a sentence
// terminator immediately before it.
func boundaryElements(content string, offs []int) []bool {
	bounds := make([]bool, len(offs))
	for i, off := range offs {
		if off == 0 {
			continue
		}
		bounds[i] = boundaryBefore(content, off)
	}
	return bounds
}

func boundaryBefore(content string, off int) bool {
	// Blank line: two newlines separated only by horizontal whitespace.
	sawNewline := 0
	for j := off - 1; j >= 0; j-- {
		c := content[j]
		if c == '\n' {
			sawNewline++
			if sawNewline >= 2 {
				return true
			}
			continue
		}
		if c == ' ' || c == '\t' || c == '\r' {
			continue
		}
		// Sentence break: terminator followed by the whitespace we just
		// scanned.
		if sawNewline > 0 || j < off-1 {
			return c == '.' || c == '!' || c == '?'
		}
		return false
	}
	return false
}

// snapToBoundary moves the window end to the nearest boundary element
// within a small search radius, preferring the closest one. Never moves
// the end at or before start, and never skips content (a backward snap
// leaves the remainder to the next window).
func snapToBoundary(bounds []bool, start, end, n, size int) int {
	radius := size / 8
	if radius < 1 {
		radius = 1
	}
	best := end
	bestDist := radius + 1
	for d := 0; d <= radius; d++ {
		if end-d > start && end-d < n && bounds[end-d] && d < bestDist {
			best, bestDist = end-d, d
		}
		if end+d < n && bounds[end+d] && d < bestDist {
			best, bestDist = end+d, d
		}
	}
	return best
}

// nearestBoundaryAtOrBefore finds a boundary element at or before target,
// staying strictly after floor.
func nearestBoundaryAtOrBefore(bounds []bool, target, floor int) int {
	if target >= len(bounds) {
		target = len(bounds) - 1
	}
	for i := target; i > floor; i-- {
		if bounds[i] {
			return i
		}
	}
	return target
}
