package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// pythonLanguage is shared across all parsers; tree-sitter languages are
// immutable and safe for concurrent use.
var pythonLanguage = sitter.NewLanguage(tree_sitter_python.Language())

func PythonLanguage() *sitter.Language {
	return pythonLanguage
}
