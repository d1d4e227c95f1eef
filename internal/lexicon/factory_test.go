package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_DefaultsToSQLite(t *testing.T) {
	lex, err := Open("", BackendSQLite, DefaultStopWords)
	require.NoError(t, err)
	defer func() { _ = lex.Close() }()
	_, ok := lex.(*SQLite)
	assert.True(t, ok)
}

func TestOpen_Bleve(t *testing.T) {
	lex, err := Open("", BackendBleve, nil)
	require.NoError(t, err)
	defer func() { _ = lex.Close() }()
	_, ok := lex.(*Bleve)
	assert.True(t, ok)
}

func TestOpen_UnknownBackendIsError(t *testing.T) {
	_, err := Open("", Backend("unknown"), nil)
	assert.Error(t, err)
}

func TestDetect_PrefersSQLiteFileOverBleveDir(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "lex")

	require.NoError(t, os.WriteFile(base+".db", []byte{}, 0o644))
	require.NoError(t, os.MkdirAll(base+".bleve", 0o755))

	assert.Equal(t, BackendSQLite, Detect(base))
}

func TestDetect_NoFilesYieldsEmptyBackend(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, Backend(""), Detect(filepath.Join(dir, "lex")))
}
