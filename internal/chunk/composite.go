package chunk

// NewCompositeConfig builds a config that inherits from one or more parent
// configs. Rule lists are concatenated in parent order, followed by the
// child's own rules; multiple inheritance is therefore order-sensitive.
// Diamond inheritance can surface the same inherited rule twice; duplicates
// are not deduplicated. The stable sort at Register time preserves
// concatenation order among equal priorities, so the first occurrence keeps
// winning.
//
// Flat ChunkTypes/IgnoreTypes are unioned; Name and Extensions always come
// from the child.
func NewCompositeConfig(child *LanguageConfig, parents ...*LanguageConfig) *LanguageConfig {
	out := &LanguageConfig{
		Name:       child.Name,
		Extensions: append([]string(nil), child.Extensions...),
	}

	seenChunk := make(map[string]struct{})
	seenIgnore := make(map[string]struct{})
	addSets := func(cfg *LanguageConfig) {
		for _, t := range cfg.ChunkTypes {
			if _, ok := seenChunk[t]; !ok {
				seenChunk[t] = struct{}{}
				out.ChunkTypes = append(out.ChunkTypes, t)
			}
		}
		for _, t := range cfg.IgnoreTypes {
			if _, ok := seenIgnore[t]; !ok {
				seenIgnore[t] = struct{}{}
				out.IgnoreTypes = append(out.IgnoreTypes, t)
			}
		}
	}

	for _, p := range parents {
		out.Rules = append(out.Rules, p.Rules...)
		addSets(p)
	}
	out.Rules = append(out.Rules, child.Rules...)
	addSets(child)

	return out
}
