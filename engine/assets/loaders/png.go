package loaders

import (
	"image/png"
	"io"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

/** @brief PNG codec over image/png. */
type PNGHandler struct{}

func (h *PNGHandler) Extensions() []string { return []string{"png"} }

func (h *PNGHandler) CanRead(r io.ReadSeeker) bool {
	return hasMagic(r, pngMagic)
}

func (h *PNGHandler) Load(r io.Reader, img *metadata.Image) bool {
	return safely(func() bool {
		m, err := png.Decode(r)
		if err != nil {
			return false
		}
		fromStdImage(m, img)
		return true
	})
}

func (h *PNGHandler) Save(w io.Writer, img *metadata.Image) bool {
	if !validImage(img) {
		return false
	}
	return safely(func() bool {
		return png.Encode(w, toStdImage(img)) == nil
	})
}
