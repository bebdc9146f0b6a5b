package upload

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes is used when Limits.MaxBytes is not set.
const DefaultMaxBytes = 10 << 20

var (
	ErrEmpty    = errors.New("upload: empty file")
	ErrNotImage = errors.New("upload: not an image")
	ErrTooLarge = errors.New("upload: file too large")
)

// supported are the raster formats the backend can open.
var supported = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/tiff": true,
}

// File is an image chosen by the user. It is a value type: callers may
// keep a copy but must not mutate Data.
type File struct {
	Name string
	MIME string
	Data []byte
}

// FromBytes builds a File, sniffing the MIME type from the content. The
// declared type of the source (browser accept filter, Telegram document
// mime) is not trusted.
func FromBytes(name string, data []byte) File {
	mt := mimetype.Detect(data)
	name = strings.TrimSpace(name)
	if name == "" {
		name = "image" + mt.Extension()
	}
	return File{Name: name, MIME: mt.String(), Data: data}
}

func ReadFile(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return FromBytes(filepath.Base(path), b), nil
}

func (f File) Size() int64 { return int64(len(f.Data)) }

// IsImage reports whether the sniffed type is one of the supported raster formats.
func (f File) IsImage() bool {
	mt := f.MIME
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return supported[strings.TrimSpace(mt)]
}

func (f File) SHA256() string {
	h := sha256.Sum256(f.Data)
	return hex.EncodeToString(h[:])
}

// Describe is a short human caption, e.g. "scan.png (image/png, 1.2 MiB)".
func (f File) Describe() string {
	return fmt.Sprintf("%s (%s, %s)", f.Name, f.MIME, humanize.IBytes(uint64(f.Size())))
}

type Limits struct {
	MaxBytes int64
}

func (l Limits) max() int64 {
	if l.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return l.MaxBytes
}

// Check validates type and size. The returned error wraps one of the
// package sentinels.
func (l Limits) Check(f File) error {
	if len(f.Data) == 0 {
		return ErrEmpty
	}
	if !f.IsImage() {
		return fmt.Errorf("%w: %s", ErrNotImage, f.MIME)
	}
	if f.Size() > l.max() {
		return fmt.Errorf("%w: %s > %s", ErrTooLarge,
			humanize.IBytes(uint64(f.Size())), humanize.IBytes(uint64(l.max())))
	}
	return nil
}

// MaxHuman renders the size limit for user-facing messages.
func (l Limits) MaxHuman() string { return humanize.IBytes(uint64(l.max())) }
