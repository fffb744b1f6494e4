package extractors

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagExtractor_NoTags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.mp3")
	require.NoError(t, os.WriteFile(path, []byte("not a real audio file"), 0o644))

	e := NewTagExtractor()
	result, err := e.Extract(context.Background(), PassageContext{FilePath: path})
	require.NoError(t, err)
	require.NotNil(t, result.Metadata)
	assert.Nil(t, result.Metadata.Title)
}

func TestTagExtractor_FileNotFound(t *testing.T) {
	e := NewTagExtractor()
	_, err := e.Extract(context.Background(), PassageContext{FilePath: "/nonexistent/path.mp3"})
	require.Error(t, err)
}

func TestTagExtractor_Name(t *testing.T) {
	e := NewTagExtractor()
	assert.Equal(t, "ID3", e.Name())
}
