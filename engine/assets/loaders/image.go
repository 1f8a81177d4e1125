package loaders

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief An image codec. CanRead sniffs the stream and leaves its position
 * unchanged. Load and Save report failure with false and never panic.
 */
type ImageHandler interface {
	/** @brief The lowercase file extensions of the format, without dot. */
	Extensions() []string
	CanRead(r io.ReadSeeker) bool
	Load(r io.Reader, img *metadata.Image) bool
	Save(w io.Writer, img *metadata.Image) bool
}

// ImageHandlers lists the codecs in probing order.
func ImageHandlers() []ImageHandler {
	return []ImageHandler{&PNGHandler{}, &BMPHandler{}, &TIFFHandler{}, &TGAHandler{}}
}

// FindImageHandler returns the first handler that recognizes r, or nil.
// TGA has no magic number and is probed last.
func FindImageHandler(r io.ReadSeeker) ImageHandler {
	for _, h := range ImageHandlers() {
		if h.CanRead(r) {
			return h
		}
	}
	return nil
}

// ImageHandlerFor returns the handler registered for a file extension.
func ImageHandlerFor(ext string) ImageHandler {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, h := range ImageHandlers() {
		for _, e := range h.Extensions() {
			if e == ext {
				return h
			}
		}
	}
	return nil
}

// sniff reads up to n bytes and restores the stream position.
func sniff(r io.ReadSeeker, n int) []byte {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil
	}
	buf := make([]byte, n)
	read, _ := io.ReadFull(r, buf)
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return nil
	}
	return buf[:read]
}

func hasMagic(r io.ReadSeeker, magic ...[]byte) bool {
	for _, m := range magic {
		if bytes.Equal(sniff(r, len(m)), m) {
			return true
		}
	}
	return false
}

// safely runs a codec body, turning a panic into a failed result.
func safely(fn func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			core.LogError("image codec: %v", r)
			ok = false
		}
	}()
	return fn()
}

func validImage(img *metadata.Image) bool {
	if img == nil || img.Width == 0 || img.Height == 0 || img.ChannelCount < 1 || img.ChannelCount > 4 {
		return false
	}
	return len(img.Pixels) == img.Stride()*int(img.Height)
}

// fromStdImage packs a decoded image into tightly packed 8 bit channels: gray
// images keep one channel, opaque images three, everything else four.
func fromStdImage(src image.Image, dst *metadata.Image) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	channels := 4
	switch src.(type) {
	case *image.Gray, *image.Gray16:
		channels = 1
	default:
		if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
			channels = 3
		}
	}
	pixels := make([]uint8, w*h*channels)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if channels == 1 {
				pixels[i] = color.GrayModel.Convert(src.At(x, y)).(color.Gray).Y
				i++
				continue
			}
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			pixels[i], pixels[i+1], pixels[i+2] = c.R, c.G, c.B
			if channels == 4 {
				pixels[i+3] = c.A
			}
			i += channels
		}
	}
	*dst = metadata.Image{
		ChannelCount: uint8(channels),
		Width:        uint32(w),
		Height:       uint32(h),
		Pixels:       pixels,
	}
}

// toStdImage wraps img for the standard encoders. Two channel images become
// gray plus alpha in NRGBA.
func toStdImage(img *metadata.Image) image.Image {
	rect := image.Rect(0, 0, int(img.Width), int(img.Height))
	if img.ChannelCount == 1 {
		return &image.Gray{Pix: img.Pixels, Stride: img.Stride(), Rect: rect}
	}
	return &image.NRGBA{Pix: img.RGBA(), Stride: int(img.Width) * 4, Rect: rect}
}

/** @brief Loads images through the first handler that recognizes the file. */
type ImageLoader struct{}

func (il *ImageLoader) Load(fsys fs.FS, name string, params interface{}) (*metadata.Resource, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(b)
	h := FindImageHandler(r)
	if h == nil {
		h = ImageHandlerFor(path.Ext(name))
	}
	if h == nil {
		return nil, fmt.Errorf("image %s: unknown format", name)
	}
	img := &metadata.Image{}
	if !h.Load(r, img) {
		return nil, fmt.Errorf("image %s: decoding failed", name)
	}
	if p, ok := params.(*metadata.ImageResourceParams); ok && p.FlipY {
		img.FlipY()
	}
	core.LogDebug("loaded image %s (%dx%d, %d channels)", name, img.Width, img.Height, img.ChannelCount)
	return &metadata.Resource{
		Name:     strings.TrimSuffix(path.Base(name), path.Ext(name)),
		Type:     metadata.ResourceTypeImage,
		FullPath: name,
		DataSize: uint64(len(img.Pixels)),
		Data:     img,
	}, nil
}

func (il *ImageLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}
