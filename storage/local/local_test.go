package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhpenta/imageedit"
)

func TestFileStorage_SaveFile(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStorage(dir)

	url, err := fs.SaveFile(context.Background(), []byte("png"), "exports/edited-image-1.png", "image/png")
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "exports", "edited-image-1.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), got)
	assert.True(t, strings.HasPrefix(url, "file://"), url)
	assert.True(t, strings.HasSuffix(url, "/exports/edited-image-1.png"), url)
}

func TestFileStorage_RejectsEscapingPaths(t *testing.T) {
	fs := NewFileStorage(t.TempDir())

	for _, path := range []string{"", "../x.png", "a/../../x.png", "/etc/x.png"} {
		_, err := fs.SaveFile(context.Background(), []byte("x"), path, "image/png")
		assert.Error(t, err, path)
	}
}

func TestFileStorage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileStorage(t.TempDir()).SaveFile(ctx, []byte("x"), "x.png", "image/png")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportResultToDisk(t *testing.T) {
	dir := t.TempDir()
	img := imageedit.DisplayableImage{Data: []byte("jpeg"), MIMEType: "image/jpeg"}

	res, err := imageedit.ExportResult(context.Background(), NewFileStorage(dir), img, time.UnixMilli(1700000000000))
	require.NoError(t, err)

	assert.Equal(t, "edited-image-1700000000000.jpg", res.Path)
	_, err = os.Stat(filepath.Join(dir, res.Path))
	assert.NoError(t, err)
}
