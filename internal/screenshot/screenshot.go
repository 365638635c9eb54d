// Package screenshot stores rendered frames as image files.
package screenshot

import (
	"bufio"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ahmedkamals/visstream/internal/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format of an image file.
type Format uint8

const (
	// None is an unsupported format.
	None Format = iota
	PNG
	JPEG
	GIF
	TIFF
	BMP
)

// FormatOf infers the format from the file extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG
	case ".jpg", ".jpeg":
		return JPEG
	case ".gif":
		return GIF
	case ".tif", ".tiff":
		return TIFF
	case ".bmp":
		return BMP
	}

	return None
}

// Save writes im to path, with the format inferred from the extension.
// The file is written to a temporary name first so a failed encode never
// leaves a truncated image behind.
func Save(im image.Image, path string) error {
	const op errors.Operation = "screenshot.Save"

	if im == nil {
		return errors.E(op, errors.Invalid)
	}

	format := FormatOf(path)
	if format == None {
		return errors.E(op, errors.Invalid, errors.Errorf("unsupported image extension %q", filepath.Ext(path)))
	}

	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.E(op, errors.Failure, err)
	}
	tmpName := file.Name()
	defer os.Remove(tmpName)

	bw := bufio.NewWriter(file)
	if err := Write(im, bw, format); err != nil {
		file.Close()
		return errors.E(op, errors.Failure, err)
	}

	if err := bw.Flush(); err != nil {
		file.Close()
		return errors.E(op, errors.Failure, err)
	}

	if err := file.Close(); err != nil {
		return errors.E(op, errors.Failure, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.E(op, errors.Failure, err)
	}

	return nil
}

// Write encodes im in the given format.
func Write(im image.Image, w io.Writer, format Format) error {
	const op errors.Operation = "screenshot.Write"

	switch format {
	case PNG:
		return png.Encode(w, im)
	case JPEG:
		return jpeg.Encode(w, im, &jpeg.Options{Quality: 90})
	case GIF:
		return gif.Encode(w, im, nil)
	case TIFF:
		return tiff.Encode(w, im, &tiff.Options{Compression: tiff.Deflate})
	case BMP:
		return bmp.Encode(w, im)
	}

	return errors.E(op, errors.Invalid, errors.Errorf("format %d not valid", format))
}
