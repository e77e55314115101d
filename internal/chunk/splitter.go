package chunk

import (
	"strings"
)

// Splitter enforces a caller token budget on chunks. Boundary search
// order: syntactic child-node boundaries (when the chunk's tree node is
// known), then line boundaries, then sentence boundaries, then raw
// character boundaries. Output sub-chunks contiguously cover the original
// span. A Splitter is a pure function of its inputs; safe for concurrent
// use.
type Splitter struct {
	MaxTokens int
	Count     TokenCounter
}

// NewSplitter creates a splitter for the given budget. A nil counter
// defaults to the chars/4 heuristic.
func NewSplitter(maxTokens int, count TokenCounter) (*Splitter, error) {
	if maxTokens <= 0 {
		return nil, NewError(ErrCodeConfigInvalid, "max tokens must be positive", nil)
	}
	if count == nil {
		count = HeuristicCounter
	}
	return &Splitter{MaxTokens: maxTokens, Count: count}, nil
}

// Split returns the chunk unchanged when it is already under budget,
// otherwise a list of contiguous sub-chunks each at or under budget. node
// is the chunk's tree node when available (nil for window chunks). When
// the smallest indivisible unit itself exceeds the budget it is emitted
// oversized and flagged via a BudgetViolation warning, never corrupted.
func (s *Splitter) Split(c *Chunk, node *Node, source []byte) ([]*Chunk, []Warning) {
	if s.Count(c.Content) <= s.MaxTokens {
		return []*Chunk{c}, nil
	}

	var warnings []Warning
	parts := s.splitSpan(c, c.Span(), node, source, &warnings)
	if len(parts) <= 1 && len(warnings) == 0 {
		// Could not find any split point; flag and emit as-is.
		flagged := s.flagOversized(c)
		return []*Chunk{flagged}, []Warning{{
			Code:    WarnBudget,
			Message: "chunk exceeds budget and has no valid split point",
			ChunkID: flagged.ID,
		}}
	}
	return parts, warnings
}

// splitSpan splits one span of the original chunk, recursing into
// oversized syntactic children before falling back to coarser boundaries.
func (s *Splitter) splitSpan(c *Chunk, span Span, node *Node, source []byte, warnings *[]Warning) []*Chunk {
	content := s.spanContent(c, span, source)
	if s.Count(content) <= s.MaxTokens {
		return []*Chunk{s.subChunk(c, span, content, source)}
	}

	if node != nil && len(node.Children) > 0 {
		if parts := s.splitByChildren(c, span, node, source, warnings); parts != nil {
			return parts
		}
	}

	cuts := lineCuts(content)
	if len(cuts) == 0 {
		cuts = sentenceCuts(content)
	}
	if len(cuts) > 0 {
		return s.packSegments(c, span, content, cuts, source, warnings)
	}
	return s.splitByChars(c, span, content, source, warnings)
}

// splitByChildren cuts at child-node start boundaries, greedily packing
// contiguous segments under budget and recursing into any single child
// that alone exceeds the budget.
func (s *Splitter) splitByChildren(c *Chunk, span Span, node *Node, source []byte, warnings *[]Warning) []*Chunk {
	type segment struct {
		span  Span
		child *Node
	}
	var segs []segment
	cursor := span.Start
	for _, child := range node.Children {
		if child.StartByte < cursor || child.EndByte > span.End || child.StartByte >= child.EndByte {
			continue
		}
		if child.StartByte > cursor {
			// Segment boundary at this child's start; the previous
			// segment absorbs any glue bytes before it.
			if len(segs) > 0 {
				segs[len(segs)-1].span.End = child.StartByte
			} else {
				segs = append(segs, segment{span: Span{Start: span.Start, End: child.StartByte}})
			}
		}
		segs = append(segs, segment{span: Span{Start: child.StartByte, End: child.EndByte}, child: child})
		cursor = child.EndByte
	}
	if cursor < span.End {
		// Trailing glue gets its own child-less segment; recursion must
		// never split a span its node does not cover.
		segs = append(segs, segment{span: Span{Start: cursor, End: span.End}})
	}
	if len(segs) < 2 {
		return nil
	}

	var out []*Chunk
	var runStart uint32 = span.Start
	runTokens := 0
	flush := func(end uint32) {
		if end <= runStart {
			return
		}
		sp := Span{Start: runStart, End: end}
		out = append(out, s.subChunk(c, sp, s.spanContent(c, sp, source), source))
		runStart = end
		runTokens = 0
	}

	for _, seg := range segs {
		segTokens := s.Count(s.spanContent(c, seg.span, source))
		if segTokens > s.MaxTokens {
			// Never accept an oversized segment when a smaller valid
			// split exists: recurse into the child instead.
			flush(seg.span.Start)
			out = append(out, s.splitSpan(c, seg.span, seg.child, source, warnings)...)
			runStart = seg.span.End
			runTokens = 0
			continue
		}
		if runTokens+segTokens > s.MaxTokens {
			flush(seg.span.Start)
		}
		runTokens += segTokens
	}
	flush(span.End)
	return out
}

// packSegments greedily packs cut-delimited segments under the budget.
// cuts are byte offsets relative to content, in ascending order.
func (s *Splitter) packSegments(c *Chunk, span Span, content string, cuts []int, source []byte, warnings *[]Warning) []*Chunk {
	var out []*Chunk
	prev := 0
	runStart := 0
	for i := 0; i <= len(cuts); i++ {
		end := len(content)
		if i < len(cuts) {
			end = cuts[i]
		}
		seg := content[prev:end]
		segTokens := s.Count(seg)
		if segTokens > s.MaxTokens {
			// Indivisible at this granularity; go one level finer.
			if runStart < prev {
				out = append(out, s.sliceChunk(c, span, content, runStart, prev, source))
			}
			segSpan := Span{Start: span.Start + uint32(prev), End: span.Start + uint32(end)}
			out = append(out, s.splitFiner(c, segSpan, seg, source, warnings)...)
			runStart = end
		} else if s.Count(content[runStart:end]) > s.MaxTokens {
			out = append(out, s.sliceChunk(c, span, content, runStart, prev, source))
			runStart = prev
		}
		prev = end
	}
	if runStart < len(content) {
		out = append(out, s.sliceChunk(c, span, content, runStart, len(content), source))
	}
	return out
}

// splitFiner drops from line granularity to sentences, then characters.
func (s *Splitter) splitFiner(c *Chunk, span Span, content string, source []byte, warnings *[]Warning) []*Chunk {
	if cuts := sentenceCuts(content); len(cuts) > 0 {
		return s.packSegments(c, span, content, cuts, source, warnings)
	}
	return s.splitByChars(c, span, content, source, warnings)
}

// splitByChars is the last resort: cut at rune boundaries, accumulating
// until the budget is hit. A single rune over budget is emitted oversized
// and flagged.
func (s *Splitter) splitByChars(c *Chunk, span Span, content string, source []byte, warnings *[]Warning) []*Chunk {
	var out []*Chunk
	runStart := 0
	prev := 0
	for i := range content {
		if i == 0 {
			continue
		}
		if s.Count(content[runStart:i]) > s.MaxTokens {
			if prev == runStart {
				// One rune exceeds the budget; nothing smaller exists.
				sub := s.flagOversized(s.sliceChunk(c, span, content, runStart, i, source))
				out = append(out, sub)
				*warnings = append(*warnings, Warning{
					Code:    WarnBudget,
					Message: "indivisible unit exceeds budget",
					ChunkID: sub.ID,
				})
				runStart = i
			} else {
				out = append(out, s.sliceChunk(c, span, content, runStart, prev, source))
				runStart = prev
			}
		}
		prev = i
	}
	if runStart < len(content) {
		rest := s.sliceChunk(c, span, content, runStart, len(content), source)
		if s.Count(rest.Content) > s.MaxTokens {
			rest = s.flagOversized(rest)
			*warnings = append(*warnings, Warning{
				Code:    WarnBudget,
				Message: "indivisible unit exceeds budget",
				ChunkID: rest.ID,
			})
		}
		out = append(out, rest)
	}
	return out
}

func (s *Splitter) sliceChunk(c *Chunk, span Span, content string, from, to int, source []byte) *Chunk {
	sp := Span{Start: span.Start + uint32(from), End: span.Start + uint32(to)}
	return s.subChunk(c, sp, content[from:to], source)
}

// spanContent returns the text a span covers. Spans are absolute file
// offsets; when the source does not cover the span (window chunks carry
// no source) the slice falls back to the chunk's own content.
func (s *Splitter) spanContent(c *Chunk, span Span, source []byte) string {
	if span.Start > span.End {
		return ""
	}
	if int(span.End) <= len(source) {
		return string(source[span.Start:span.End])
	}
	from := int(span.Start) - int(c.StartByte)
	to := int(span.End) - int(c.StartByte)
	if from < 0 || to > len(c.Content) {
		return ""
	}
	return c.Content[from:to]
}

// subChunk builds a sub-chunk covering part of the original span,
// inheriting type, language, and hierarchy linkage from the original.
func (s *Splitter) subChunk(c *Chunk, span Span, content string, source []byte) *Chunk {
	startLine := c.StartLine
	if prefix := s.spanContent(c, Span{Start: c.StartByte, End: span.Start}, source); prefix != "" {
		startLine += strings.Count(prefix, "\n")
	}
	endLine := startLine + strings.Count(strings.TrimSuffix(content, "\n"), "\n")

	sub := &Chunk{
		ID:            chunkID(c.FileID, span, content),
		FileID:        c.FileID,
		Language:      c.Language,
		Type:          c.Type,
		StartByte:     span.Start,
		EndByte:       span.End,
		StartLine:     startLine,
		EndLine:       endLine,
		Content:       content,
		ParentContext: c.ParentContext,
		ParentID:      c.ParentID,
		Metadata:      copyMetadata(c.Metadata),
	}
	sub.Metadata["split"] = "true"
	return sub
}

// flagOversized returns a copy with the oversized marker set. The input
// chunk is never mutated.
func (s *Splitter) flagOversized(c *Chunk) *Chunk {
	out := *c
	out.Metadata = copyMetadata(c.Metadata)
	out.Metadata["oversized"] = "true"
	return &out
}

// lineCuts returns byte offsets after each newline in content. No cuts
// means single-line content.
func lineCuts(content string) []int {
	var cuts []int
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' && i+1 < len(content) {
			cuts = append(cuts, i+1)
		}
	}
	return cuts
}

// sentenceCuts returns byte offsets after sentence terminators.
func sentenceCuts(content string) []int {
	var cuts []int
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '.', '!', '?':
			j := i + 1
			for j < len(content) && (content[j] == ' ' || content[j] == '\t') {
				j++
			}
			if j > i+1 && j < len(content) {
				cuts = append(cuts, j)
			}
		}
	}
	return cuts
}
