package loaders

import (
	"io"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"golang.org/x/image/tiff"
)

/** @brief TIFF codec over golang.org/x/image/tiff. Saved files are deflate compressed. */
type TIFFHandler struct{}

func (h *TIFFHandler) Extensions() []string { return []string{"tif", "tiff"} }

func (h *TIFFHandler) CanRead(r io.ReadSeeker) bool {
	return hasMagic(r, []byte("II*\x00"), []byte("MM\x00*"))
}

func (h *TIFFHandler) Load(r io.Reader, img *metadata.Image) bool {
	return safely(func() bool {
		m, err := tiff.Decode(r)
		if err != nil {
			return false
		}
		fromStdImage(m, img)
		return true
	})
}

func (h *TIFFHandler) Save(w io.Writer, img *metadata.Image) bool {
	if !validImage(img) {
		return false
	}
	return safely(func() bool {
		return tiff.Encode(w, toStdImage(img), &tiff.Options{Compression: tiff.Deflate}) == nil
	})
}
