package chunk

import (
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ChunkRule is a declarative pattern governing chunk formation. Rules are
// matched in priority order (descending); among equal priorities the
// first-registered rule wins.
type ChunkRule struct {
	// NodeType is the node-type pattern. Exact match, or a glob pattern
	// when it contains a wildcard (e.g. "*_definition").
	NodeType string

	// ParentType constrains the syntactic parent. Empty means any parent.
	ParentType string

	// Priority orders rules; higher wins.
	Priority int

	// Metadata is copied onto chunks formed by this rule.
	Metadata map[string]string

	// IncludeChildren controls whether nested declarations below a chunk
	// formed by this rule are still extracted.
	IncludeChildren bool

	// seq is the insertion order, used as a stable tie-break.
	seq int
}

// matches reports whether the rule applies to (nodeType, parentType).
func (r *ChunkRule) matches(nodeType, parentType string) bool {
	if !matchPattern(r.NodeType, nodeType) {
		return false
	}
	if r.ParentType != "" && r.ParentType != parentType {
		return false
	}
	return true
}

func matchPattern(pattern, s string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return pattern == s
	}
	ok, err := path.Match(pattern, s)
	return err == nil && ok
}

// LanguageConfig holds the declarative chunking configuration for one
// language: flat accept/reject sets, an ordered rule list, and the file
// extensions the language claims.
type LanguageConfig struct {
	Name        string
	Extensions  []string
	ChunkTypes  []string // Flat set: node types that become chunks
	IgnoreTypes []string // Node types (and their subtrees) never emitted
	Rules       []ChunkRule
}

// Decision is the resolver's answer for one (node type, parent type) pair.
// Metadata is shared with the winning rule and must be treated as
// read-only.
type Decision struct {
	IsChunk         bool
	Ignored         bool // The node sits in an ignored region; skip its subtree
	Rule            *ChunkRule
	IncludeChildren bool
	Metadata        map[string]string
}

// compiledConfig is an immutable, lookup-optimized form of a
// LanguageConfig. Built once at Register time.
type compiledConfig struct {
	cfg         *LanguageConfig
	rules       []ChunkRule // priority-descending, stable
	chunkTypes  map[string]struct{}
	ignoreTypes map[string]struct{}
}

func compileConfig(cfg *LanguageConfig) *compiledConfig {
	cc := &compiledConfig{
		cfg:         cfg,
		rules:       make([]ChunkRule, len(cfg.Rules)),
		chunkTypes:  make(map[string]struct{}, len(cfg.ChunkTypes)),
		ignoreTypes: make(map[string]struct{}, len(cfg.IgnoreTypes)),
	}
	copy(cc.rules, cfg.Rules)
	for i := range cc.rules {
		cc.rules[i].seq = i
	}
	// Stable sort keeps insertion order among equal priorities.
	sort.SliceStable(cc.rules, func(i, j int) bool {
		return cc.rules[i].Priority > cc.rules[j].Priority
	})
	for _, t := range cfg.ChunkTypes {
		cc.chunkTypes[t] = struct{}{}
	}
	for _, t := range cfg.IgnoreTypes {
		cc.ignoreTypes[t] = struct{}{}
	}
	return cc
}

// resolve applies the precedence order: ignore veto, then rule scan, then
// the flat chunk-type set. Never fails; every configuration is resolvable.
func (cc *compiledConfig) resolve(nodeType, parentType string) Decision {
	if _, ignored := cc.ignoreTypes[nodeType]; ignored {
		return Decision{Ignored: true}
	}
	for i := range cc.rules {
		r := &cc.rules[i]
		if r.matches(nodeType, parentType) {
			return Decision{
				IsChunk:         true,
				Rule:            r,
				IncludeChildren: r.IncludeChildren,
				Metadata:        r.Metadata,
			}
		}
	}
	if _, ok := cc.chunkTypes[nodeType]; ok {
		return Decision{IsChunk: true, IncludeChildren: true}
	}
	return Decision{}
}

const resolveCacheSize = 4096

// registrySnapshot is the immutable state readers observe. Register swaps
// whole snapshots; the decision cache lives inside the snapshot so a swap
// invalidates it wholesale.
type registrySnapshot struct {
	configs   map[string]*compiledConfig
	extToLang map[string]string
	cache     *lru.Cache[resolveKey, Decision]
}

type resolveKey struct {
	lang, nodeType, parentType string
}

// Registry stores per-language configs and answers node-level chunk
// decisions. It is the only shared mutable state in the engine: reads are
// lock-free atomic-pointer loads, writes copy and swap. Readers never
// observe a partially-updated rule list.
type Registry struct {
	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[registrySnapshot]
}

// NewRegistry creates a registry preloaded with the built-in language
// configurations.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	for _, cfg := range builtinConfigs() {
		r.Register(cfg)
	}
	return r
}

// NewEmptyRegistry creates a registry with no languages registered.
// Unregistered languages still resolve via the built-in default set.
func NewEmptyRegistry() *Registry {
	r := &Registry{}
	r.snap.Store(newSnapshot(nil))
	return r
}

func newSnapshot(prev *registrySnapshot) *registrySnapshot {
	s := &registrySnapshot{
		configs:   make(map[string]*compiledConfig),
		extToLang: make(map[string]string),
	}
	if prev != nil {
		for k, v := range prev.configs {
			s.configs[k] = v
		}
		for k, v := range prev.extToLang {
			s.extToLang[k] = v
		}
	}
	// Never fails for a positive size.
	s.cache, _ = lru.New[resolveKey, Decision](resolveCacheSize)
	return s
}

// Register atomically installs or replaces a language's config. The config
// is compiled into an immutable snapshot; concurrent resolvers keep using
// the previous snapshot until the swap completes.
func (r *Registry) Register(cfg *LanguageConfig) {
	cc := compileConfig(cfg)

	r.mu.Lock()
	defer r.mu.Unlock()

	s := newSnapshot(r.snap.Load())
	s.configs[cfg.Name] = cc
	for _, ext := range cfg.Extensions {
		s.extToLang[normalizeExt(ext)] = cfg.Name
	}
	r.snap.Store(s)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Resolve decides whether a (node type, parent type) pair under the given
// language forms a chunk. Unregistered languages resolve against the
// built-in default set so unknown languages still get coarse chunks.
func (r *Registry) Resolve(language, nodeType, parentType string) Decision {
	s := r.snap.Load()

	key := resolveKey{lang: language, nodeType: nodeType, parentType: parentType}
	if d, ok := s.cache.Get(key); ok {
		return d
	}

	cc, ok := s.configs[language]
	if !ok {
		cc = defaultCompiled
	}
	d := cc.resolve(nodeType, parentType)
	s.cache.Add(key, d)
	return d
}

// Config returns the registered config for a language.
func (r *Registry) Config(language string) (*LanguageConfig, bool) {
	cc, ok := r.snap.Load().configs[language]
	if !ok {
		return nil, false
	}
	return cc.cfg, true
}

// LanguageForExtension maps a file extension (with or without the leading
// dot) to a registered language name.
func (r *Registry) LanguageForExtension(ext string) (string, bool) {
	lang, ok := r.snap.Load().extToLang[normalizeExt(ext)]
	return lang, ok
}

// Languages returns the registered language names, sorted.
func (r *Registry) Languages() []string {
	s := r.snap.Load()
	names := make([]string, 0, len(s.configs))
	for name := range s.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// defaultCompiled resolves unregistered languages: a coarse set of
// function/class/method-like node type names shared across grammars.
var defaultCompiled = compileConfig(&LanguageConfig{
	Name: "",
	ChunkTypes: []string{
		"function_definition",
		"function_declaration",
		"function_item",
		"method_definition",
		"method_declaration",
		"class_definition",
		"class_declaration",
		"class_specifier",
		"interface_declaration",
		"struct_specifier",
		"type_declaration",
	},
})
