package chunk

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// PolicyState names the fallback decision states, making the decision
// path inspectable instead of buried in conditionals.
type PolicyState string

const (
	StateDetectLanguage   PolicyState = "DetectLanguage"
	StateProbeParser      PolicyState = "ProbeParserAvailability"
	StateAttemptParse     PolicyState = "AttemptParse"
	StateDecisionRecorded PolicyState = "DecisionRecorded"
)

// DefaultMaxErrorRatio is the error-node fraction above which a parse is
// considered too broken for AST chunking.
const DefaultMaxErrorRatio = 0.3

// Policy chooses, per file, between AST chunking, sliding-window chunking,
// or hybrid. The terminal FallbackDecision is recorded once by the engine
// and never mutated.
type Policy struct {
	registry      *Registry
	provider      TreeProvider
	counter       TokenCounter
	maxErrorRatio float64
}

// NewPolicy builds a policy. provider may be nil, in which case every file
// takes the window path.
func NewPolicy(registry *Registry, provider TreeProvider, counter TokenCounter) *Policy {
	if counter == nil {
		counter = HeuristicCounter
	}
	return &Policy{
		registry:      registry,
		provider:      provider,
		counter:       counter,
		maxErrorRatio: DefaultMaxErrorRatio,
	}
}

// SetMaxErrorRatio overrides the error-ratio threshold. Values outside
// (0, 1] are ignored.
func (p *Policy) SetMaxErrorRatio(ratio float64) {
	if ratio > 0 && ratio <= 1 {
		p.maxErrorRatio = ratio
	}
}

// outcome carries the provisional strategy through the state machine; the
// engine upgrades AST to Hybrid when the budget bites on AST output and
// only then records the immutable decision.
type outcome struct {
	strategy  Strategy
	language  string
	rationale []string
	tree      *Tree
}

// decide runs the state machine for one file: DetectLanguage →
// ProbeParserAvailability → AttemptParse → {AST | Window} path. The
// returned tree is non-nil only on the AST path.
func (p *Policy) decide(ctx context.Context, file *FileInput) outcome {
	o := outcome{strategy: StrategyWindow}

	// DetectLanguage
	o.language = file.Language
	if o.language == "" {
		if lang, ok := p.registry.LanguageForExtension(filepath.Ext(file.Path)); ok {
			o.language = lang
			o.rationale = append(o.rationale, fmt.Sprintf("%s: detected %q from extension", StateDetectLanguage, lang))
		} else {
			o.rationale = append(o.rationale, fmt.Sprintf("%s: no language for extension %q", StateDetectLanguage, filepath.Ext(file.Path)))
			return o
		}
	}

	// ProbeParserAvailability
	if p.provider == nil || !p.provider.Supports(o.language) {
		o.rationale = append(o.rationale, fmt.Sprintf("%s: no parser for %q", StateProbeParser, o.language))
		return o
	}

	// AttemptParse
	tree, err := p.provider.Parse(ctx, file.Content, o.language)
	if err != nil {
		o.rationale = append(o.rationale, fmt.Sprintf("%s: parse failed: %v", StateAttemptParse, err))
		return o
	}
	if ratio := tree.ErrorRatio(); ratio > p.maxErrorRatio {
		o.rationale = append(o.rationale, fmt.Sprintf("%s: error ratio %.2f exceeds %.2f", StateAttemptParse, ratio, p.maxErrorRatio))
		return o
	}

	o.strategy = StrategyAST
	o.tree = tree
	o.rationale = append(o.rationale, fmt.Sprintf("%s: parse succeeded with low error ratio", StateAttemptParse))
	return o
}

// record builds the terminal decision. strategy may upgrade the
// provisional one (AST → Hybrid) when the engine had to split.
func (o outcome) record(strategy Strategy, extra string, tokenEstimate int) FallbackDecision {
	rationale := o.rationale
	if extra != "" {
		rationale = append(rationale, extra)
	}
	rationale = append(rationale, string(StateDecisionRecorded))
	return FallbackDecision{
		Strategy:      strategy,
		Language:      o.language,
		Rationale:     strings.Join(rationale, "; "),
		TokenEstimate: tokenEstimate,
	}
}
