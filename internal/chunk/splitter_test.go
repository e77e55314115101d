package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// byteCounter counts one token per byte, making budgets exact in tests.
func byteCounter(s string) int { return len(s) }

func testChunk(content string) *Chunk {
	span := Span{Start: 0, End: uint32(len(content))}
	return &Chunk{
		ID:        chunkID("f.go", span, content),
		FileID:    "f.go",
		Language:  "go",
		Type:      "function_declaration",
		StartByte: span.Start,
		EndByte:   span.End,
		StartLine: 1,
		EndLine:   1 + strings.Count(content, "\n"),
		Content:   content,
		Metadata:  map[string]string{},
	}
}

// assertContiguous verifies the parts cover the original span exactly,
// no gaps, no overlap.
func assertContiguous(t *testing.T, original *Chunk, parts []*Chunk) {
	t.Helper()
	require.NotEmpty(t, parts)
	assert.Equal(t, original.StartByte, parts[0].StartByte)
	for i := 1; i < len(parts); i++ {
		assert.Equal(t, parts[i-1].EndByte, parts[i].StartByte,
			"part %d must start where part %d ended", i, i-1)
	}
	assert.Equal(t, original.EndByte, parts[len(parts)-1].EndByte)
}

func TestSplitter_UnderBudgetIsNoOp(t *testing.T) {
	s, err := NewSplitter(100, byteCounter)
	require.NoError(t, err)

	c := testChunk("short content")
	parts, warnings := s.Split(c, nil, []byte(c.Content))

	require.Len(t, parts, 1)
	assert.Same(t, c, parts[0], "under-budget chunk returns the original unchanged")
	assert.Empty(t, warnings)
}

func TestSplitter_RejectsNonPositiveBudget(t *testing.T) {
	_, err := NewSplitter(0, byteCounter)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

// A chunk with syntactic children sized 80/150/270 against a budget of
// 200: the splitter must recurse into the 270 child rather than accept it
// oversized.
func TestSplitter_RecursesIntoOversizedChild(t *testing.T) {
	content := strings.Repeat("x", 500)
	source := []byte(content)

	grand1 := mkNode("statement", 230, 330, 0, 0)
	grand2 := mkNode("statement", 330, 430, 0, 0)
	grand3 := mkNode("statement", 430, 500, 0, 0)
	child3 := mkNode("block", 230, 500, 0, 0, grand1, grand2, grand3)
	node := mkNode("function_declaration", 0, 500, 0, 0,
		mkNode("signature", 0, 80, 0, 0),
		mkNode("block", 80, 230, 0, 0),
		child3,
	)

	s, err := NewSplitter(200, byteCounter)
	require.NoError(t, err)

	c := testChunk(content)
	parts, warnings := s.Split(c, node, source)

	assert.Empty(t, warnings)
	assertContiguous(t, c, parts)
	for _, p := range parts {
		assert.LessOrEqual(t, byteCounter(p.Content), 200,
			"every part must be at or under budget")
		assert.NotContains(t, p.Metadata, "oversized")
		assert.Equal(t, "true", p.Metadata["split"])
	}
	assert.GreaterOrEqual(t, len(parts), 4)
}

func TestSplitter_LineBoundariesWithoutNode(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = strings.Repeat("a", 50)
	}
	content := strings.Join(lines, "\n")

	s, err := NewSplitter(120, byteCounter)
	require.NoError(t, err)

	c := testChunk(content)
	parts, warnings := s.Split(c, nil, []byte(content))

	assert.Empty(t, warnings)
	assertContiguous(t, c, parts)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p.Content), 120)
	}
	assert.Greater(t, len(parts), 1)
}

func TestSplitter_SentenceBoundariesForSingleLineProse(t *testing.T) {
	content := "First sentence here. Second sentence follows. Third one ends."

	s, err := NewSplitter(30, byteCounter)
	require.NoError(t, err)

	c := testChunk(content)
	parts, warnings := s.Split(c, nil, []byte(content))

	assert.Empty(t, warnings)
	assertContiguous(t, c, parts)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p.Content), 30)
	}
}

func TestSplitter_CharacterFallback(t *testing.T) {
	// No newlines, no sentence breaks: the splitter cuts at rune
	// boundaries as a last resort.
	content := strings.Repeat("z", 25)

	s, err := NewSplitter(10, byteCounter)
	require.NoError(t, err)

	c := testChunk(content)
	parts, warnings := s.Split(c, nil, []byte(content))

	assert.Empty(t, warnings)
	assertContiguous(t, c, parts)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p.Content), 10)
	}
}

func TestSplitter_IndivisibleUnitEmittedOversizedAndFlagged(t *testing.T) {
	// Every string counts as 1000 tokens: nothing fits a 200 budget, and
	// the smallest unit is emitted oversized with a flag, not corrupted.
	huge := func(s string) int {
		if s == "" {
			return 0
		}
		return 1000
	}
	s, err := NewSplitter(200, huge)
	require.NoError(t, err)

	c := testChunk("x")
	parts, warnings := s.Split(c, nil, []byte(c.Content))

	require.Len(t, parts, 1)
	assert.Equal(t, "true", parts[0].Metadata["oversized"])
	require.NotEmpty(t, warnings)
	assert.Equal(t, WarnBudget, warnings[0].Code)
	assert.Equal(t, c.Content, parts[0].Content, "content is never corrupted")
	assert.NotContains(t, c.Metadata, "oversized", "the input chunk is never mutated")
}

func TestSplitter_FlagOversizedLeavesInputUntouched(t *testing.T) {
	s, err := NewSplitter(200, byteCounter)
	require.NoError(t, err)

	c := testChunk("unchanged")
	flagged := s.flagOversized(c)

	assert.NotSame(t, c, flagged)
	assert.Equal(t, c.ID, flagged.ID)
	assert.Equal(t, "true", flagged.Metadata["oversized"])
	assert.NotContains(t, c.Metadata, "oversized")
}

// A child followed by trailing bytes up to the span end: the trailing
// glue must not widen the child's segment, or recursion would split a
// span the child node does not cover and part boundaries would drift
// off the child.
func TestSplitter_TrailingGlueKeepsChildBoundaries(t *testing.T) {
	content := strings.Repeat(strings.Repeat("g", 49)+"\n", 10)
	source := []byte(content)

	inner := mkNode("function_definition", 100, 160, 2, 3,
		mkNode("identifier", 104, 109, 2, 2))
	node := mkNode("block", 0, 500, 0, 9, inner)

	s, err := NewSplitter(200, byteCounter)
	require.NoError(t, err)

	c := testChunk(content)
	parts, warnings := s.Split(c, node, source)

	assert.Empty(t, warnings)
	assertContiguous(t, c, parts)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p.Content), 200)
	}

	childSpan := Span{Start: 100, End: 160}
	var host *Chunk
	for _, p := range parts {
		if p.Span().Contains(childSpan) || p.Span() == childSpan {
			host = p
		}
	}
	require.NotNil(t, host, "one part must cover the child span whole")
}

// Window chunks carry no source; splitting works off the chunk's own
// content with spans kept absolute.
func TestSplitter_NilSourceFallsBackToChunkContent(t *testing.T) {
	content := "alpha line here\nbeta line here\ngamma line here\n"
	span := Span{Start: 100, End: 100 + uint32(len(content))}
	c := &Chunk{
		ID:        chunkID("notes.txt", span, content),
		FileID:    "notes.txt",
		Type:      "window",
		StartByte: span.Start,
		EndByte:   span.End,
		StartLine: 5,
		EndLine:   7,
		Content:   content,
		Metadata:  map[string]string{},
	}

	s, err := NewSplitter(20, byteCounter)
	require.NoError(t, err)

	parts, warnings := s.Split(c, nil, nil)

	assert.Empty(t, warnings)
	assertContiguous(t, c, parts)
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p.Content), 20)
	}
	assert.Equal(t, 5, parts[0].StartLine)
	assert.Equal(t, 6, parts[1].StartLine)
	assert.Equal(t, 7, parts[2].StartLine)
}

func TestSplitter_SubChunksInheritIdentityAndAdjustLines(t *testing.T) {
	content := "line one is long enough\nline two is long enough\nline three is long enough"

	s, err := NewSplitter(30, byteCounter)
	require.NoError(t, err)

	c := testChunk(content)
	c.StartLine = 10
	c.EndLine = 12
	c.ParentContext = "Outer"

	parts, _ := s.Split(c, nil, []byte(content))
	require.Greater(t, len(parts), 1)

	assert.Equal(t, 10, parts[0].StartLine)
	assert.Equal(t, 10, parts[0].EndLine, "a trailing newline does not open a new line")
	assert.Equal(t, 11, parts[1].StartLine)
	assert.Equal(t, 11, parts[1].EndLine)
	for _, p := range parts {
		assert.Equal(t, c.FileID, p.FileID)
		assert.Equal(t, c.Type, p.Type)
		assert.Equal(t, "Outer", p.ParentContext)
	}
}
