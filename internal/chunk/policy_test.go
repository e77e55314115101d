package chunk

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider is a TreeProvider with canned responses.
type stubProvider struct {
	langs map[string]bool
	tree  *Tree
	err   error
}

func (s *stubProvider) Supports(language string) bool { return s.langs[language] }

func (s *stubProvider) Parse(_ context.Context, _ []byte, _ string) (*Tree, error) {
	return s.tree, s.err
}

func cleanTree() *Tree {
	src := []byte("def f():\n    pass\n")
	fn := mkNode("function_definition", 0, 17, 0, 1,
		mkNode("identifier", 4, 5, 0, 0),
		mkNode("block", 13, 17, 1, 1),
	)
	return &Tree{Root: mkNode("module", 0, 18, 0, 2, fn), Source: src, Language: "python"}
}

func brokenTree() *Tree {
	root := mkNode("module", 0, 10, 0, 0,
		mkNode("ERROR", 0, 5, 0, 0),
		mkNode("ERROR", 5, 10, 0, 0),
	)
	return &Tree{Root: root, Source: []byte("@@@@@!!!!!"), Language: "python"}
}

func TestPolicy_UnknownExtensionFallsBackToWindow(t *testing.T) {
	p := NewPolicy(NewRegistry(), &stubProvider{}, nil)

	o := p.decide(context.Background(), &FileInput{Path: "notes.xyz", Content: []byte("text")})

	assert.Equal(t, StrategyWindow, o.strategy)
	assert.Empty(t, o.language)
	assert.Nil(t, o.tree)
	require.NotEmpty(t, o.rationale)
	assert.Contains(t, o.rationale[0], string(StateDetectLanguage))
}

func TestPolicy_DetectsLanguageFromExtension(t *testing.T) {
	p := NewPolicy(NewRegistry(), nil, nil)

	o := p.decide(context.Background(), &FileInput{Path: "main.py", Content: []byte("x = 1")})

	assert.Equal(t, "python", o.language)
	assert.Contains(t, o.rationale[0], "detected")
}

func TestPolicy_ExplicitLanguageSkipsDetection(t *testing.T) {
	p := NewPolicy(NewRegistry(), nil, nil)

	o := p.decide(context.Background(), &FileInput{Path: "weird.dat", Content: []byte("x"), Language: "python"})

	assert.Equal(t, "python", o.language)
	for _, r := range o.rationale {
		assert.NotContains(t, r, string(StateDetectLanguage))
	}
}

func TestPolicy_NilProviderTakesWindowPath(t *testing.T) {
	p := NewPolicy(NewRegistry(), nil, nil)

	o := p.decide(context.Background(), &FileInput{Path: "main.go", Content: []byte("package main")})

	assert.Equal(t, StrategyWindow, o.strategy)
	assert.Nil(t, o.tree)
	assert.Contains(t, strings.Join(o.rationale, "; "), string(StateProbeParser))
}

func TestPolicy_UnsupportedLanguageTakesWindowPath(t *testing.T) {
	provider := &stubProvider{langs: map[string]bool{"go": true}}
	p := NewPolicy(NewRegistry(), provider, nil)

	o := p.decide(context.Background(), &FileInput{Path: "app.py", Content: []byte("x = 1")})

	assert.Equal(t, StrategyWindow, o.strategy)
	assert.Contains(t, strings.Join(o.rationale, "; "), "no parser")
}

func TestPolicy_ParseFailureTakesWindowPath(t *testing.T) {
	provider := &stubProvider{
		langs: map[string]bool{"python": true},
		err:   errors.New("grammar exploded"),
	}
	p := NewPolicy(NewRegistry(), provider, nil)

	o := p.decide(context.Background(), &FileInput{Path: "app.py", Content: []byte("x = 1")})

	assert.Equal(t, StrategyWindow, o.strategy)
	assert.Nil(t, o.tree)
	assert.Contains(t, strings.Join(o.rationale, "; "), "parse failed")
}

func TestPolicy_HighErrorRatioTakesWindowPath(t *testing.T) {
	provider := &stubProvider{
		langs: map[string]bool{"python": true},
		tree:  brokenTree(),
	}
	p := NewPolicy(NewRegistry(), provider, nil)

	o := p.decide(context.Background(), &FileInput{Path: "app.py", Content: []byte("@@@@@!!!!!")})

	assert.Equal(t, StrategyWindow, o.strategy)
	assert.Contains(t, strings.Join(o.rationale, "; "), "error ratio")
}

func TestPolicy_CleanParseTakesASTPath(t *testing.T) {
	provider := &stubProvider{
		langs: map[string]bool{"python": true},
		tree:  cleanTree(),
	}
	p := NewPolicy(NewRegistry(), provider, nil)

	o := p.decide(context.Background(), &FileInput{Path: "app.py", Content: []byte("def f():\n    pass\n")})

	assert.Equal(t, StrategyAST, o.strategy)
	require.NotNil(t, o.tree)
	assert.Contains(t, strings.Join(o.rationale, "; "), "parse succeeded")
}

func TestPolicy_ErrorRatioThresholdOverride(t *testing.T) {
	provider := &stubProvider{
		langs: map[string]bool{"python": true},
		tree:  brokenTree(),
	}
	p := NewPolicy(NewRegistry(), provider, nil)
	p.SetMaxErrorRatio(0.9)

	o := p.decide(context.Background(), &FileInput{Path: "app.py", Content: []byte("@@@@@!!!!!")})
	assert.Equal(t, StrategyAST, o.strategy, "a 0.67 error ratio passes a 0.9 threshold")

	// Out-of-range overrides are ignored.
	p.SetMaxErrorRatio(0)
	p.SetMaxErrorRatio(1.5)
	o = p.decide(context.Background(), &FileInput{Path: "app.py", Content: []byte("@@@@@!!!!!")})
	assert.Equal(t, StrategyAST, o.strategy)
}

func TestOutcome_RecordBuildsTerminalDecision(t *testing.T) {
	o := outcome{
		strategy:  StrategyAST,
		language:  "python",
		rationale: []string{"AttemptParse: parse succeeded with low error ratio"},
	}

	d := o.record(StrategyHybrid, "budget exceeded on AST output", 321)

	assert.Equal(t, StrategyHybrid, d.Strategy)
	assert.Equal(t, "python", d.Language)
	assert.Equal(t, 321, d.TokenEstimate)
	assert.True(t, strings.HasSuffix(d.Rationale, string(StateDecisionRecorded)))
	assert.Contains(t, d.Rationale, "budget exceeded")
	assert.Contains(t, d.Rationale, "parse succeeded")
}
