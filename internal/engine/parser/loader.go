package parser

import (
	"fmt"
	"sort"
	"strings"

	"symscope/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
)

// GrammarLoader owns the tree-sitter grammars of the enabled languages and
// the extension registry that routes files to them.
type GrammarLoader struct {
	languages  map[string]*sitter.Language
	extensions map[string]string
}

// NewGrammarLoader loads a grammar for every language referenced by
// extensions, a map from file extension to language id.
func NewGrammarLoader(extensions map[string]string) (*GrammarLoader, error) {
	gl := &GrammarLoader{
		languages:  make(map[string]*sitter.Language),
		extensions: make(map[string]string, len(extensions)),
	}
	for _, ext := range util.SortedStringKeys(extensions) {
		lang := extensions[ext]
		gl.extensions[strings.ToLower(ext)] = lang
		if _, ok := gl.languages[lang]; ok {
			continue
		}
		switch lang {
		case "c":
			gl.languages[lang] = sitter.NewLanguage(tree_sitter_c.Language())
		case "cpp":
			gl.languages[lang] = sitter.NewLanguage(tree_sitter_cpp.Language())
		default:
			return nil, fmt.Errorf("language %q is enabled but no grammar is available", lang)
		}
	}
	return gl, nil
}

func (gl *GrammarLoader) Language(id string) *sitter.Language {
	return gl.languages[id]
}

func (gl *GrammarLoader) Languages() []string {
	return util.SortedStringKeys(gl.languages)
}

func (gl *GrammarLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(gl.extensions))
	for ext := range gl.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
