package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Options configures an Engine.
type Options struct {
	// MaxTokens is the per-chunk token budget. 0 disables budget
	// enforcement (and with it the hybrid path).
	MaxTokens int

	// Window configures the sliding-window fallback path.
	Window WindowConfig

	// Counter estimates token counts. Nil defaults to the chars/4
	// heuristic.
	Counter TokenCounter

	// Provider produces syntax trees. Nil sends every file down the
	// window path.
	Provider TreeProvider

	// MaxDepth bounds tree traversal. 0 uses the default.
	MaxDepth int

	// MaxErrorRatio overrides the parse error-ratio threshold. 0 uses the
	// default.
	MaxErrorRatio float64

	// Logger receives warning-level diagnostics. Nil uses slog.Default.
	Logger *slog.Logger
}

// Engine orchestrates the per-file pipeline: fallback decision, AST walk
// or window scan, and budget enforcement. Extraction for one file is
// synchronous and non-cancellable internally; callers wanting
// cancellation run files on a cancellable worker and discard partial
// results.
type Engine struct {
	registry *Registry
	walker   *Walker
	splitter *Splitter
	windows  *WindowEngine
	policy   *Policy
	counter  TokenCounter
	logger   *slog.Logger
}

// NewEngine validates the options and builds an engine. All configuration
// errors surface here, never mid-run.
func NewEngine(registry *Registry, opts Options) (*Engine, error) {
	if registry == nil {
		return nil, ConfigError("registry must not be nil", nil)
	}
	counter := opts.Counter
	if counter == nil {
		counter = HeuristicCounter
	}

	win := opts.Window
	if win.WindowSize == 0 && win.Unit == "" {
		win = DefaultWindowConfig()
	}
	windows, err := NewWindowEngine(win, counter)
	if err != nil {
		return nil, err
	}

	var splitter *Splitter
	if opts.MaxTokens > 0 {
		splitter, err = NewSplitter(opts.MaxTokens, counter)
		if err != nil {
			return nil, err
		}
	}

	walker := NewWalker(registry)
	if opts.MaxDepth > 0 {
		walker.SetMaxDepth(opts.MaxDepth)
	}

	policy := NewPolicy(registry, opts.Provider, counter)
	if opts.MaxErrorRatio > 0 {
		policy.SetMaxErrorRatio(opts.MaxErrorRatio)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		registry: registry,
		walker:   walker,
		splitter: splitter,
		windows:  windows,
		policy:   policy,
		counter:  counter,
		logger:   logger,
	}, nil
}

// ChunkFile chunks one file. Per-file problems degrade to warnings on the
// Result; the returned error is reserved for caller misuse (nil file).
func (e *Engine) ChunkFile(ctx context.Context, file *FileInput) (*Result, error) {
	if file == nil {
		return nil, ConfigError("file must not be nil", nil)
	}

	res := &Result{FileID: file.Path}

	content, corrupt := sanitizeUTF8(file.Content)
	if corrupt {
		res.Warnings = append(res.Warnings, warnf(WarnCorruptInput,
			"invalid UTF-8 in %s replaced with U+FFFD", file.Path))
		file = &FileInput{Path: file.Path, Content: content, Language: file.Language}
	}

	if len(strings.TrimSpace(string(file.Content))) == 0 {
		res.Decision = FallbackDecision{
			Strategy:  StrategyWindow,
			Language:  file.Language,
			Rationale: "empty input",
		}
		return res, nil
	}

	o := e.policy.decide(ctx, file)
	estimate := e.counter(string(file.Content))

	if o.strategy != StrategyAST {
		for _, w := range e.windows.Windows(file) {
			wc := w.Chunk
			wc.Language = o.language
			wc.Metadata["position"] = fmt.Sprintf("%d", w.Position)
			res.Chunks = append(res.Chunks, &wc)
		}
		res.Decision = o.record(StrategyWindow, "", estimate)
		e.logWarnings(file.Path, res.Warnings)
		return res, nil
	}

	walked := e.walker.Walk(o.tree, file.Path)
	res.Warnings = append(res.Warnings, walked.Warnings...)
	chunks := walked.Chunks
	if len(chunks) == 0 {
		res.Warnings = append(res.Warnings, warnf(WarnExtraction,
			"no chunks extracted from %s; falling back to windows", file.Path))
		for _, w := range e.windows.Windows(file) {
			wc := w.Chunk
			wc.Language = o.language
			res.Chunks = append(res.Chunks, &wc)
		}
		res.Decision = o.record(StrategyWindow, "AST produced no chunks", estimate)
		e.logWarnings(file.Path, res.Warnings)
		return res, nil
	}

	strategy := StrategyAST
	extra := ""
	if e.splitter != nil {
		var split bool
		chunks, split = e.applyBudget(chunks, walked, o.tree.Source, res)
		if split {
			strategy = StrategyHybrid
			extra = "budget exceeded on AST output"
		}
	}

	res.Chunks = chunks
	res.Decision = o.record(strategy, extra, estimate)
	e.logWarnings(file.Path, res.Warnings)
	return res, nil
}

// applyBudget runs the splitter over oversized chunks and repairs the
// hierarchy: split parts replace the original in its parent's child list,
// and chunks nested under a split chunk re-parent to whichever part
// contains their span.
func (e *Engine) applyBudget(chunks []*Chunk, walked *WalkResult, source []byte, res *Result) ([]*Chunk, bool) {
	anySplit := false
	byID := make(map[string]*Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	var out []*Chunk
	for _, c := range chunks {
		node, _ := walked.NodeFor(c.ID)
		parts, warnings := e.splitter.Split(c, node, source)
		res.Warnings = append(res.Warnings, warnings...)
		if len(parts) == 1 {
			// Unchanged, or flagged oversized; either way the chunk
			// keeps its identity and the hierarchy is untouched.
			out = append(out, parts[0])
			continue
		}
		anySplit = true
		// Parts may themselves host re-parented chunks that get split on
		// a later iteration; they must be reachable for child repair.
		for _, p := range parts {
			byID[p.ID] = p
		}

		partIDs := make([]string, len(parts))
		for i, p := range parts {
			partIDs[i] = p.ID
		}
		if parent, ok := byID[c.ParentID]; ok {
			parent.ChildIDs = replaceID(parent.ChildIDs, c.ID, partIDs)
		}
		// Re-parent the original's nested chunks to the containing part.
		for _, child := range chunks {
			if child.ParentID != c.ID {
				continue
			}
			child.ParentID = c.ParentID
			for _, p := range parts {
				if p.Span().Contains(child.Span()) {
					child.ParentID = p.ID
					p.ChildIDs = append(p.ChildIDs, child.ID)
					break
				}
			}
		}
		out = append(out, parts...)
	}
	return out, anySplit
}

func replaceID(ids []string, old string, replacement []string) []string {
	out := make([]string, 0, len(ids)+len(replacement)-1)
	for _, id := range ids {
		if id == old {
			out = append(out, replacement...)
		} else {
			out = append(out, id)
		}
	}
	return out
}

// ChunkBatch chunks many files on a bounded worker pool. One bad file
// never halts the batch; the only error is context cancellation. Results
// are returned in input order.
func (e *Engine) ChunkBatch(ctx context.Context, files []*FileInput, workers int) ([]*Result, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]*Result, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.ChunkFile(ctx, file)
			if err != nil {
				var path string
				if file != nil {
					path = file.Path
				}
				res = &Result{
					FileID:   path,
					Warnings: []Warning{warnf(WarnExtraction, "skipped: %v", err)},
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (e *Engine) logWarnings(fileID string, warnings []Warning) {
	for _, w := range warnings {
		e.logger.Warn("chunking warning", "file", fileID, "code", w.Code, "message", w.Message)
	}
}

// sanitizeUTF8 replaces invalid byte sequences with U+FFFD, reporting
// whether any replacement happened. Best-effort decoding: the file still
// chunks, with a visible marker where bytes were lost.
func sanitizeUTF8(content []byte) ([]byte, bool) {
	s := string(content)
	valid := strings.ToValidUTF8(s, "�")
	if valid == s {
		return content, false
	}
	return []byte(valid), true
}
