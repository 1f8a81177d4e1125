package metadata

import "github.com/spaghettifunk/prism/engine/renderer/graphics"

/**
 * @brief Decoded image data. Rows are stored top to bottom, channels are
 * 8 bit and tightly packed.
 */
type Image struct {
	/** @brief The number of channels, 1 to 4. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The pixel data of the image. */
	Pixels []uint8
}

/** @brief Parameters used when loading an image. */
type ImageResourceParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
}

// Format is the texture format matching the channel count.
func (i *Image) Format() graphics.Format {
	switch i.ChannelCount {
	case 1:
		return graphics.FormatR8Unorm
	case 2:
		return graphics.FormatR8G8Unorm
	case 3:
		return graphics.FormatR8G8B8Unorm
	case 4:
		return graphics.FormatR8G8B8A8Unorm
	}
	return graphics.FormatUndefined
}

// Stride is the byte length of one row.
func (i *Image) Stride() int {
	return int(i.Width) * int(i.ChannelCount)
}

// FlipY reverses the row order in place.
func (i *Image) FlipY() {
	stride := i.Stride()
	row := make([]uint8, stride)
	for top, bottom := 0, int(i.Height)-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := i.Pixels[top*stride : (top+1)*stride]
		b := i.Pixels[bottom*stride : (bottom+1)*stride]
		copy(row, a)
		copy(a, b)
		copy(b, row)
	}
}

// RGBA expands the pixels to four channels. Gray values are replicated and
// missing alpha is opaque.
func (i *Image) RGBA() []uint8 {
	if i.ChannelCount == 4 {
		return i.Pixels
	}
	n := int(i.Width) * int(i.Height)
	out := make([]uint8, n*4)
	c := int(i.ChannelCount)
	for p := 0; p < n; p++ {
		src := i.Pixels[p*c : (p+1)*c]
		dst := out[p*4 : (p+1)*4]
		switch c {
		case 1:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[0], src[0], 0xFF
		case 2:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[0], src[0], src[1]
		case 3:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[1], src[2], 0xFF
		}
	}
	return out
}
