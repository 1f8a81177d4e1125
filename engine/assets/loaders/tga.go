package loaders

import (
	"encoding/binary"
	"io"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const (
	tgaTypeNone    = 0
	tgaTypeRGB     = 2
	tgaTypeGray    = 3
	tgaTypeRGBRLE  = 10
	tgaTypeGrayRLE = 11

	tgaHeaderSize = 18

	// descriptor bit set when rows are stored top to bottom
	tgaOriginTop = 0x20
)

type tgaHeader struct {
	IDLength       uint8
	ColormapType   uint8
	ImageType      uint8
	ColormapIndex  uint16
	ColormapLength uint16
	ColormapSize   uint8
	XOrigin        uint16
	YOrigin        uint16
	Width          uint16
	Height         uint16
	PixelSize      uint8
	Descriptor     uint8
}

/**
 * @brief Truevision TGA codec. Reads uncompressed and RLE true color and
 * gray images, writes uncompressed ones.
 */
type TGAHandler struct{}

func (h *TGAHandler) Extensions() []string { return []string{"tga"} }

// CanRead accepts headers of uncompressed true color, gray or RLE true color
// images without color map or id field, at 16, 24 or 32 bits per pixel.
func (h *TGAHandler) CanRead(r io.ReadSeeker) bool {
	b := sniff(r, tgaHeaderSize)
	if len(b) < tgaHeaderSize {
		return false
	}
	hdr := parseTGAHeader(b)
	switch hdr.ImageType {
	case tgaTypeNone, tgaTypeRGB, tgaTypeGray, tgaTypeRGBRLE:
	default:
		return false
	}
	if hdr.ColormapType != 0 || hdr.IDLength != 0 {
		return false
	}
	switch hdr.PixelSize {
	case 16, 24, 32:
		return true
	}
	return false
}

func parseTGAHeader(b []byte) tgaHeader {
	le := binary.LittleEndian
	return tgaHeader{
		IDLength:       b[0],
		ColormapType:   b[1],
		ImageType:      b[2],
		ColormapIndex:  le.Uint16(b[3:]),
		ColormapLength: le.Uint16(b[5:]),
		ColormapSize:   b[7],
		XOrigin:        le.Uint16(b[8:]),
		YOrigin:        le.Uint16(b[10:]),
		Width:          le.Uint16(b[12:]),
		Height:         le.Uint16(b[14:]),
		PixelSize:      b[16],
		Descriptor:     b[17],
	}
}

func (h tgaHeader) bytes() []byte {
	b := make([]byte, tgaHeaderSize)
	le := binary.LittleEndian
	b[0], b[1], b[2] = h.IDLength, h.ColormapType, h.ImageType
	le.PutUint16(b[3:], h.ColormapIndex)
	le.PutUint16(b[5:], h.ColormapLength)
	b[7] = h.ColormapSize
	le.PutUint16(b[8:], h.XOrigin)
	le.PutUint16(b[10:], h.YOrigin)
	le.PutUint16(b[12:], h.Width)
	le.PutUint16(b[14:], h.Height)
	b[16], b[17] = h.PixelSize, h.Descriptor
	return b
}

func (h *TGAHandler) Load(r io.Reader, img *metadata.Image) bool {
	return safely(func() bool { return loadTGA(r, img) })
}

func loadTGA(r io.Reader, img *metadata.Image) bool {
	b := make([]byte, tgaHeaderSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return false
	}
	hdr := parseTGAHeader(b)
	if hdr.ColormapType != 0 || hdr.Width == 0 || hdr.Height == 0 {
		return false
	}
	if hdr.IDLength != 0 {
		if _, err := io.CopyN(io.Discard, r, int64(hdr.IDLength)); err != nil {
			return false
		}
	}

	gray := hdr.ImageType == tgaTypeGray || hdr.ImageType == tgaTypeGrayRLE
	bpp := int(hdr.PixelSize) / 8
	switch {
	case gray && (bpp == 1 || bpp == 2):
	case !gray && (bpp == 2 || bpp == 3 || bpp == 4):
	default:
		return false
	}

	n := int(hdr.Width) * int(hdr.Height)
	raw := make([]byte, n*bpp)
	switch hdr.ImageType {
	case tgaTypeRGB, tgaTypeGray:
		if _, err := io.ReadFull(r, raw); err != nil {
			return false
		}
	case tgaTypeRGBRLE, tgaTypeGrayRLE:
		if !decodeTGARLE(r, raw, bpp) {
			return false
		}
	default:
		return false
	}

	channels := bpp
	if !gray && bpp == 2 {
		// A1R5G5B5
		channels = 4
	}
	pixels := make([]uint8, n*channels)
	for i := 0; i < n; i++ {
		src := raw[i*bpp : (i+1)*bpp]
		dst := pixels[i*channels : (i+1)*channels]
		switch {
		case gray:
			copy(dst, src)
		case bpp == 2:
			v := binary.LittleEndian.Uint16(src)
			dst[0] = expand5(v >> 10)
			dst[1] = expand5(v >> 5)
			dst[2] = expand5(v)
			dst[3] = 0xFF
			if v&0x8000 == 0 && hdr.Descriptor&0x0F != 0 {
				dst[3] = 0
			}
		default:
			// stored as BGR(A)
			dst[0], dst[1], dst[2] = src[2], src[1], src[0]
			if bpp == 4 {
				dst[3] = src[3]
			}
		}
	}

	*img = metadata.Image{
		ChannelCount: uint8(channels),
		Width:        uint32(hdr.Width),
		Height:       uint32(hdr.Height),
		Pixels:       pixels,
	}
	if hdr.Descriptor&tgaOriginTop == 0 {
		img.FlipY()
	}
	return true
}

func expand5(v uint16) uint8 {
	c := uint8(v & 0x1F)
	return c<<3 | c>>2
}

// decodeTGARLE fills out from run length packets of bpp sized pixels.
func decodeTGARLE(r io.Reader, out []byte, bpp int) bool {
	var head [1]byte
	pixel := make([]byte, bpp)
	for i := 0; i < len(out); {
		if _, err := io.ReadFull(r, head[:]); err != nil {
			return false
		}
		count := int(head[0]&0x7F) + 1
		if i+count*bpp > len(out) {
			return false
		}
		if head[0]&0x80 != 0 {
			if _, err := io.ReadFull(r, pixel); err != nil {
				return false
			}
			for j := 0; j < count; j++ {
				copy(out[i:], pixel)
				i += bpp
			}
			continue
		}
		if _, err := io.ReadFull(r, out[i:i+count*bpp]); err != nil {
			return false
		}
		i += count * bpp
	}
	return true
}

// Save writes an uncompressed image with a bottom left origin. One and two
// channel images are written as gray.
func (h *TGAHandler) Save(w io.Writer, img *metadata.Image) bool {
	if !validImage(img) || img.Width > 0xFFFF || img.Height > 0xFFFF {
		return false
	}
	return safely(func() bool { return saveTGA(w, img) })
}

func saveTGA(w io.Writer, img *metadata.Image) bool {
	channels := int(img.ChannelCount)
	hdr := tgaHeader{
		ImageType: tgaTypeRGB,
		Width:     uint16(img.Width),
		Height:    uint16(img.Height),
		PixelSize: uint8(channels * 8),
	}
	if channels <= 2 {
		hdr.ImageType = tgaTypeGray
	}
	if channels == 2 || channels == 4 {
		hdr.Descriptor = 8
	}
	if _, err := w.Write(hdr.bytes()); err != nil {
		return false
	}

	stride := img.Stride()
	row := make([]byte, stride)
	for y := int(img.Height) - 1; y >= 0; y-- {
		src := img.Pixels[y*stride : (y+1)*stride]
		copy(row, src)
		if channels >= 3 {
			for x := 0; x < stride; x += channels {
				row[x], row[x+2] = row[x+2], row[x]
			}
		}
		if _, err := w.Write(row); err != nil {
			return false
		}
	}
	return true
}
