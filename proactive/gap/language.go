package gap

import (
	"bytes"
	"path/filepath"
	"strings"
)

// languageFor routes a file to a Language by extension. Unknown extensions
// fall back to LangUnknown, which only the TODO/FIXME detector runs against.
func languageFor(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rs":
		return LangRust
	case ".js", ".jsx", ".mjs":
		return LangJavaScript
	case ".toml":
		return LangTOML
	default:
		return LangUnknown
	}
}

// looksBinary sniffs the first bytes of content for NUL bytes, the same
// heuristic git and most text editors use to decide "binary or text".
func looksBinary(content []byte) bool {
	n := len(content)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}
