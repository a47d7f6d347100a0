// Package langdetect maps source files to the dialect marker used to pick a
// grammar. It uses go-enry for extension, shebang, and content detection.
package langdetect

import (
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"

	"github.com/yaklabco/tsweave/pkg/source"
)

// Extensions lists the file extensions handled by default.
var Extensions = []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}

// byExtension resolves extensions enry treats as ambiguous (".ts" is also
// Qt Linguist XML) or folds into a parent language (".jsx").
var byExtension = map[string]source.Language{
	".ts":  source.TypeScript,
	".mts": source.TypeScript,
	".cts": source.TypeScript,
	".tsx": source.TSX,
	".js":  source.JavaScript,
	".mjs": source.JavaScript,
	".cjs": source.JavaScript,
	".jsx": source.JSX,
}

// Detect returns the dialect of the file at path. content is consulted only
// when the extension is unknown. The second result is false when the file
// is not TypeScript or JavaScript.
func Detect(path string, content []byte) (source.Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))

	// Strategy 1: known extensions.
	if lang, ok := byExtension[ext]; ok {
		return lang, true
	}

	// Strategy 2: enry extension table (".es6" and friends).
	if ext != "" {
		if lang, safe := enry.GetLanguageByExtension(path); safe {
			return normalize(lang)
		}
	}

	// Strategy 3: shebang, e.g. "#!/usr/bin/env node".
	if lang, safe := enry.GetLanguageByShebang(content); safe {
		return normalize(lang)
	}

	// Strategy 4: classifier, only for extensionless files with content.
	if ext == "" && len(content) > 0 {
		candidates := []string{"TypeScript", "JavaScript", "Shell", "Python", "Go"}
		if lang, safe := enry.GetLanguageByClassifier(content, candidates); safe {
			return normalize(lang)
		}
	}

	return "", false
}

// Supported reports whether path has one of the given extensions.
// A nil list falls back to Extensions.
func Supported(path string, extensions []string) bool {
	if extensions == nil {
		extensions = Extensions
	}
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// normalize converts go-enry language names to dialect markers.
func normalize(lang string) (source.Language, bool) {
	switch lang {
	case "TypeScript":
		return source.TypeScript, true
	case "TSX":
		return source.TSX, true
	case "JavaScript":
		return source.JavaScript, true
	default:
		return "", false
	}
}
