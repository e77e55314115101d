package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicCounter(t *testing.T) {
	assert.Equal(t, 0, HeuristicCounter(""))
	assert.Equal(t, 1, HeuristicCounter("ab"), "non-empty content is at least one token")
	assert.Equal(t, 25, HeuristicCounter(strings.Repeat("x", 100)))
}

func TestTiktokenCounter(t *testing.T) {
	count, err := NewTiktokenCounter()
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}

	assert.Equal(t, 0, count(""))

	n := count("func main() { fmt.Println(\"hello\") }")
	assert.Greater(t, n, 5)
	assert.Less(t, n, 40)

	// Longer content counts more tokens.
	assert.Greater(t, count(strings.Repeat("word ", 100)), count("word"))
}
