package loaders

import (
	"io"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"golang.org/x/image/bmp"
)

/** @brief Windows bitmap codec over golang.org/x/image/bmp. */
type BMPHandler struct{}

func (h *BMPHandler) Extensions() []string { return []string{"bmp"} }

func (h *BMPHandler) CanRead(r io.ReadSeeker) bool {
	return hasMagic(r, []byte("BM"))
}

func (h *BMPHandler) Load(r io.Reader, img *metadata.Image) bool {
	return safely(func() bool {
		m, err := bmp.Decode(r)
		if err != nil {
			return false
		}
		fromStdImage(m, img)
		return true
	})
}

func (h *BMPHandler) Save(w io.Writer, img *metadata.Image) bool {
	if !validImage(img) {
		return false
	}
	return safely(func() bool {
		return bmp.Encode(w, toStdImage(img)) == nil
	})
}
