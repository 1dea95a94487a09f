package media

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeClassifiablePNG writes a small PNG with the given text chunks and a
// fixed modification time
func writeClassifiablePNG(t *testing.T, path string, modTime time.Time, chunks ...[]byte) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	data := encodePNGWithChunks(t, img, chunks...)
	require.NoError(t, os.WriteFile(path, data, 0644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestProcessImage_MovesAndClassifies(t *testing.T) {
	a := assert.New(t)
	src := t.TempDir()
	dest := t.TempDir()

	modTime := time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)
	srcPath := filepath.Join(src, "novel.png")
	writeClassifiablePNG(t, srcPath, modTime,
		textChunk(t, "Comment", `{"prompt":"a castle","uc":"lowres"}`),
		textChunk(t, "Source", "sdxl"))

	result, err := ProcessImage(srcPath, dest)
	a.NoError(err)
	require.NotNil(t, result)

	a.Equal(PlatformNovelAI, result.Platform)
	a.Equal("250314_092653", result.MakeTime)
	a.Equal("a castle", result.Metadata["prompt"])
	a.Equal("sdxl", result.Metadata["Source"])

	wantPath := filepath.Join(dest, PlatformNovelAI, "250314", "novel.png")
	a.Equal(filepath.ToSlash(mustAbs(t, wantPath)), result.NewPath)

	_, err = os.Stat(wantPath)
	a.NoError(err, "file should exist at classified destination")
	_, err = os.Stat(srcPath)
	a.True(os.IsNotExist(err), "source should be gone after the move")
}

func TestProcessImage_UnknownPlatform(t *testing.T) {
	a := assert.New(t)
	src := t.TempDir()
	dest := t.TempDir()

	modTime := time.Date(2024, 12, 31, 23, 59, 59, 0, time.Local)
	srcPath := filepath.Join(src, "plain.png")
	writeClassifiablePNG(t, srcPath, modTime)

	result, err := ProcessImage(srcPath, dest)
	a.NoError(err)
	require.NotNil(t, result)

	a.Equal(PlatformUnknown, result.Platform)
	a.Empty(result.Metadata)
	_, err = os.Stat(filepath.Join(dest, PlatformUnknown, "241231", "plain.png"))
	a.NoError(err)
}

func TestProcessImage_DuplicateSkipped(t *testing.T) {
	a := assert.New(t)
	src := t.TempDir()
	dest := t.TempDir()

	modTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	srcPath := filepath.Join(src, "dupe.png")
	writeClassifiablePNG(t, srcPath, modTime)

	occupied := filepath.Join(dest, PlatformUnknown, "250601")
	require.NoError(t, os.MkdirAll(occupied, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(occupied, "dupe.png"), []byte("already here"), 0644))

	result, err := ProcessImage(srcPath, dest)
	a.NoError(err)
	a.Nil(result)

	_, err = os.Stat(srcPath)
	a.NoError(err, "duplicate source must be left in place")
	data, err := os.ReadFile(filepath.Join(occupied, "dupe.png"))
	a.NoError(err)
	a.Equal("already here", string(data), "existing destination must not be overwritten")
}

func TestProcessImage_Errors(t *testing.T) {
	a := assert.New(t)
	src := t.TempDir()
	dest := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := ProcessImage(filepath.Join(src, "absent.png"), dest)
		a.Error(err)
	})

	t.Run("not a png", func(t *testing.T) {
		bad := filepath.Join(src, "bad.png")
		require.NoError(t, os.WriteFile(bad, []byte("plain text"), 0644))
		_, err := ProcessImage(bad, dest)
		a.Error(err)
	})
}

func mustAbs(t *testing.T, path string) string {
	t.Helper()
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	return abs
}
