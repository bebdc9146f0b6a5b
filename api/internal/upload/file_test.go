package upload

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.SetGray(x, x%h, color.Gray{Y: 200})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFromBytes_SniffsContentNotName(t *testing.T) {
	f := FromBytes("scan.txt", pngBytes(t, 4, 4))
	assert.Equal(t, "image/png", f.MIME)
	assert.Equal(t, "scan.txt", f.Name)
	assert.True(t, f.IsImage())

	txt := FromBytes("scan.png", []byte("definitely not an image"))
	assert.False(t, txt.IsImage())
}

func TestFromBytes_DefaultName(t *testing.T) {
	f := FromBytes("  ", pngBytes(t, 2, 2))
	assert.Equal(t, "image.png", f.Name)
}

func TestLimitsCheck(t *testing.T) {
	img := pngBytes(t, 8, 8)
	tests := []struct {
		name string
		file File
		max  int64
		want error
	}{
		{"ok", FromBytes("a.png", img), 0, nil},
		{"empty", File{Name: "a.png", MIME: "image/png"}, 0, ErrEmpty},
		{"not image", FromBytes("a.png", []byte("hello")), 0, ErrNotImage},
		{"too large", FromBytes("a.png", img), 10, ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Limits{MaxBytes: tt.max}.Check(tt.file)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "chest.png")
	require.NoError(t, os.WriteFile(p, pngBytes(t, 3, 3), 0o600))

	f, err := ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "chest.png", f.Name)
	assert.Equal(t, int64(len(f.Data)), f.Size())
	assert.Len(t, f.SHA256(), 64)

	_, err = ReadFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestDimensionsAndToJPEG(t *testing.T) {
	data := pngBytes(t, 40, 10)
	w, h, format, err := Dimensions(data)
	require.NoError(t, err)
	assert.Equal(t, 40, w)
	assert.Equal(t, 10, h)
	assert.Equal(t, "png", format)

	out, err := ToJPEG(data, 100)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx()*img.Bounds().Dy(), 100)

	_, err = ToJPEG([]byte("nope"), 0)
	assert.Error(t, err)
}
