package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"symscope/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Extractor turns a syntax tree into a File.
type Extractor interface {
	Extract(node *sitter.Node, source []byte, filePath string) (*File, error)
}

type Parser struct {
	loader     *GrammarLoader
	pools      map[string]*ParserPool
	extractors map[string]Extractor
}

// NewParser prepares a parser pool and the binding extractor for every
// language the loader knows.
func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader:     loader,
		pools:      make(map[string]*ParserPool),
		extractors: make(map[string]Extractor),
	}
	for _, lang := range loader.Languages() {
		p.pools[lang] = NewParserPool(loader.Language(lang))
		p.extractors[lang] = &BindingExtractor{Language: lang}
	}
	return p
}

// ParseFile parses content, binds every declaration and reference into a
// fresh symbol table and reports the outcome. Lookup failures are returned
// as Diagnostics on the File, not as an error.
func (p *Parser) ParseFile(path string, content []byte) (*File, error) {
	lang := p.GetLanguage(path)
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}
	extractor := p.extractors[lang]
	pool := p.pools[lang]
	if extractor == nil || pool == nil {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, fmt.Sprintf("no extractor for: %s", lang)), errors.CtxLanguage, lang)
	}

	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	file, err := extractor.Extract(tree.RootNode(), content, path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "binding failed"), errors.CtxPath, path)
	}
	file.Language = lang
	if file.ParsedAt.IsZero() {
		file.ParsedAt = time.Now()
	}
	return file, nil
}

// GetLanguage returns the language id for path, or "" when unsupported.
func (p *Parser) GetLanguage(path string) string {
	return p.loader.extensions[strings.ToLower(filepath.Ext(path))]
}

func (p *Parser) IsSupportedPath(path string) bool {
	return p.GetLanguage(path) != ""
}

func (p *Parser) SupportedExtensions() []string {
	return p.loader.SupportedExtensions()
}
