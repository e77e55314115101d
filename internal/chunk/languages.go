package chunk

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// builtinConfigs returns the default per-language configurations installed
// by NewRegistry. Callers can replace any of them via Register.
func builtinConfigs() []*LanguageConfig {
	goCfg := &LanguageConfig{
		Name:       "go",
		Extensions: []string{".go"},
		ChunkTypes: []string{
			"function_declaration",
			"method_declaration",
			"type_declaration",
			"const_declaration",
			"var_declaration",
		},
		IgnoreTypes: []string{"comment"},
	}

	jsCfg := &LanguageConfig{
		Name:       "javascript",
		Extensions: []string{".js", ".mjs", ".jsx"},
		ChunkTypes: []string{
			"function_declaration",
			"method_definition",
			"class_declaration",
			"lexical_declaration",
			"variable_declaration",
		},
		IgnoreTypes: []string{"comment"},
	}

	tsCfg := NewCompositeConfig(&LanguageConfig{
		Name:       "typescript",
		Extensions: []string{".ts"},
		ChunkTypes: []string{
			"interface_declaration",
			"type_alias_declaration",
			"enum_declaration",
		},
		Rules: []ChunkRule{
			// Ambient/overload signatures are merged into their
			// implementation by the normalizer; a bare signature with no
			// body still chunks on its own.
			{NodeType: "function_signature", Priority: 5, IncludeChildren: false},
		},
	}, jsCfg)

	tsxCfg := NewCompositeConfig(&LanguageConfig{
		Name:       "tsx",
		Extensions: []string{".tsx"},
	}, tsCfg)

	pyCfg := &LanguageConfig{
		Name:       "python",
		Extensions: []string{".py"},
		ChunkTypes: []string{
			"function_definition",
			"class_definition",
		},
		IgnoreTypes: []string{"comment"},
		Rules: []ChunkRule{
			// Decorated definitions chunk as a whole so the decorator
			// travels with the function.
			{NodeType: "decorated_definition", Priority: 10, IncludeChildren: true},
		},
	}

	return []*LanguageConfig{goCfg, jsCfg, tsCfg, tsxCfg, pyCfg}
}

// sitterLanguages maps language names to their tree-sitter grammars.
var sitterLanguages = map[string]*sitter.Language{
	"go":         golang.GetLanguage(),
	"javascript": javascript.GetLanguage(),
	"python":     python.GetLanguage(),
	"typescript": typescript.GetLanguage(),
	"tsx":        tsx.GetLanguage(),
}

// SitterLanguage returns the tree-sitter grammar for a language name.
func SitterLanguage(name string) (*sitter.Language, bool) {
	lang, ok := sitterLanguages[name]
	return lang, ok
}
