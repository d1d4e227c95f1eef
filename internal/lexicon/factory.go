package lexicon

import (
	"fmt"
	"os"
)

// Open creates or opens a lexicon at basePath using the given backend. The
// extension is chosen by backend (".db" for sqlite, ".bleve" for bleve); an
// empty basePath opens an in-memory index. stopWords only applies to the
// sqlite backend, since Bleve's standard analyzer carries its own.
func Open(basePath string, backend Backend, stopWords []string) (Lexicon, error) {
	switch backend {
	case BackendSQLite, "":
		var path string
		if basePath != "" {
			path = basePath + ".db"
		}
		return NewSQLite(path, stopWords)

	case BackendBleve:
		var path string
		if basePath != "" {
			path = basePath + ".bleve"
		}
		return NewBleve(path)

	default:
		return nil, fmt.Errorf("unknown lexicon backend: %s (valid options: sqlite, bleve)", backend)
	}
}

// Detect reports which backend an existing on-disk lexicon at basePath uses,
// based on file/directory existence, or "" if neither exists.
func Detect(basePath string) Backend {
	if fileExists(basePath + ".db") {
		return BackendSQLite
	}
	if dirExists(basePath + ".bleve") {
		return BackendBleve
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
