package systems

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var (
	ErrTextureNotFound = errors.New("texture not found")
	ErrTooManyTextures = errors.New("texture limit reached")
)

// textureExtensions are tried in order when a texture is acquired by name.
var textureExtensions = []string{"png", "tga", "bmp", "tif", "tiff"}

const defaultTextureSize = 64

/** @brief The texture system configuration. */
type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32
}

type textureEntry struct {
	id      uint32
	name    string
	path    string
	ref     metadata.TextureReference
	texture graphics.Texture
	loading bool
}

/**
 * @brief Loads textures from the asset directory and hands out reference
 * counted GPU textures by name. With a job system the image is decoded on a
 * worker and the default texture stands in until the upload; listeners
 * registered with OnLoaded learn about the swap.
 */
type TextureSystem struct {
	config TextureSystemConfig
	device graphics.Device
	assets *assets.AssetManager
	jobs   *JobSystem
	events *core.EventBus

	ids      *core.IDAllocator
	textures map[string]*textureEntry
	// asset path to texture name
	byPath map[string]string

	defaultTexture graphics.Texture
	whiteTexture   graphics.Texture

	onLoaded []func(name string, texture graphics.Texture)

	log *log.Logger
}

// NewTextureSystem creates the default and white textures. js may be nil, in
// which case textures are loaded synchronously.
func NewTextureSystem(config TextureSystemConfig, device graphics.Device, am *assets.AssetManager, js *JobSystem, events *core.EventBus) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	ts := &TextureSystem{
		config:   config,
		device:   device,
		assets:   am,
		jobs:     js,
		events:   events,
		ids:      core.NewIDAllocator(int(config.MaxTextureCount)),
		textures: make(map[string]*textureEntry),
		byPath:   make(map[string]string),
		log:      core.Logger().With("system", "textures"),
	}
	if err := ts.createDefaultTextures(); err != nil {
		ts.Shutdown()
		return nil, err
	}
	if events != nil {
		events.Register(core.EVENT_CODE_ASSET_CHANGED, ts, ts.onAssetChanged)
	}
	return ts, nil
}

func (ts *TextureSystem) createDefaultTextures() error {
	// magenta and white checkerboard, 8 texels per square
	img := &metadata.Image{ChannelCount: 4, Width: defaultTextureSize, Height: defaultTextureSize}
	img.Pixels = make([]uint8, img.Stride()*int(img.Height))
	for y := 0; y < defaultTextureSize; y++ {
		for x := 0; x < defaultTextureSize; x++ {
			i := (y*defaultTextureSize + x) * 4
			img.Pixels[i], img.Pixels[i+1], img.Pixels[i+2], img.Pixels[i+3] = 0xFF, 0xFF, 0xFF, 0xFF
			if (x/8+y/8)%2 == 0 {
				img.Pixels[i+1] = 0
			}
		}
	}
	var err error
	if ts.defaultTexture, err = ts.createTexture(metadata.DefaultTextureName, img); err != nil {
		return fmt.Errorf("default texture: %w", err)
	}
	white := &metadata.Image{ChannelCount: 4, Width: 1, Height: 1, Pixels: []uint8{0xFF, 0xFF, 0xFF, 0xFF}}
	if ts.whiteTexture, err = ts.createTexture(metadata.WhiteTextureName, white); err != nil {
		return fmt.Errorf("white texture: %w", err)
	}
	return nil
}

// Default is the checkerboard texture standing in for missing or loading textures.
func (ts *TextureSystem) Default() graphics.Texture { return ts.defaultTexture }

func (ts *TextureSystem) White() graphics.Texture { return ts.whiteTexture }

// Acquire returns the texture called name and takes a reference on it. The
// first acquisition starts loading textures/<name>.<ext>; until the image is
// uploaded the default texture is returned.
func (ts *TextureSystem) Acquire(name string, autoRelease bool) (graphics.Texture, error) {
	switch name {
	case metadata.DefaultTextureName:
		return ts.defaultTexture, nil
	case metadata.WhiteTextureName:
		return ts.whiteTexture, nil
	}
	if e, ok := ts.textures[name]; ok {
		e.ref.ReferenceCount++
		return ts.current(e), nil
	}

	p, ok := ts.find(name)
	if !ok {
		return ts.defaultTexture, fmt.Errorf("%w: %s", ErrTextureNotFound, name)
	}
	if len(ts.textures) >= int(ts.config.MaxTextureCount) {
		return ts.defaultTexture, fmt.Errorf("%w: %d textures", ErrTooManyTextures, ts.config.MaxTextureCount)
	}
	e := &textureEntry{
		name: name,
		path: p,
		ref:  metadata.TextureReference{ReferenceCount: 1, AutoRelease: autoRelease},
	}
	e.id = ts.ids.Acquire(e)
	ts.textures[name] = e
	ts.byPath[p] = name

	if err := ts.load(e); err != nil {
		ts.drop(e)
		return ts.defaultTexture, err
	}
	return ts.current(e), nil
}

// Get returns the current texture called name without taking a reference,
// or the default texture.
func (ts *TextureSystem) Get(name string) graphics.Texture {
	switch name {
	case metadata.DefaultTextureName:
		return ts.defaultTexture
	case metadata.WhiteTextureName:
		return ts.whiteTexture
	}
	if e, ok := ts.textures[name]; ok {
		return ts.current(e)
	}
	return ts.defaultTexture
}

// IsLoading reports whether the image of name is still being decoded.
func (ts *TextureSystem) IsLoading(name string) bool {
	e, ok := ts.textures[name]
	return ok && e.loading
}

// OnLoaded registers fn to be called, on the goroutine running
// JobSystem.Update, every time a texture gets new content.
func (ts *TextureSystem) OnLoaded(fn func(name string, texture graphics.Texture)) {
	ts.onLoaded = append(ts.onLoaded, fn)
}

// Release drops a reference. Auto release textures are destroyed with their
// last reference.
func (ts *TextureSystem) Release(name string) {
	e, ok := ts.textures[name]
	if !ok {
		if name != metadata.DefaultTextureName && name != metadata.WhiteTextureName {
			ts.log.Warn("release of unknown texture", "texture", name)
		}
		return
	}
	if e.ref.ReferenceCount > 0 {
		e.ref.ReferenceCount--
	}
	if e.ref.ReferenceCount == 0 && e.ref.AutoRelease {
		ts.drop(e)
	}
}

func (ts *TextureSystem) current(e *textureEntry) graphics.Texture {
	if e.texture == nil {
		return ts.defaultTexture
	}
	return e.texture
}

func (ts *TextureSystem) find(name string) (string, bool) {
	if ts.assets == nil {
		return "", false
	}
	if ts.assets.Exists(name) {
		return name, true
	}
	for _, ext := range textureExtensions {
		p := "textures/" + name + "." + ext
		if ts.assets.Exists(p) {
			return p, true
		}
	}
	return "", false
}

func (ts *TextureSystem) drop(e *textureEntry) {
	graphics.Release(e.texture)
	e.texture = nil
	delete(ts.textures, e.name)
	delete(ts.byPath, e.path)
	if err := ts.ids.Release(e.id); err != nil {
		ts.log.Warn("release id", "texture", e.name, "err", err)
	}
	ts.log.Debug("destroyed", "texture", e.name)
}

func (ts *TextureSystem) imageParams() *metadata.ImageResourceParams {
	// GL samples rows bottom up
	return &metadata.ImageResourceParams{FlipY: ts.device.Type().IsOpenGL()}
}

// load decodes the image of e and uploads it, on a worker when a job system
// is available.
func (ts *TextureSystem) load(e *textureEntry) error {
	if ts.jobs == nil {
		res, err := ts.assets.Load(e.path, ts.imageParams())
		if err != nil {
			return err
		}
		return ts.upload(e, res)
	}

	e.loading = true
	p := e.path
	params := ts.imageParams()
	return ts.jobs.Submit(metadata.JobTask{
		Name: "texture " + e.name,
		Run: func() (interface{}, error) {
			return ts.assets.Load(p, params)
		},
		OnComplete: func(result interface{}) {
			// the texture may have been released while loading
			if cur, ok := ts.textures[e.name]; !ok || cur != e {
				return
			}
			e.loading = false
			if err := ts.upload(e, result.(*metadata.Resource)); err != nil {
				ts.log.Error("upload failed", "texture", e.name, "err", err)
			}
		},
		OnFailure: func(err error) {
			e.loading = false
			ts.log.Error("load failed", "texture", e.name, "path", p, "err", err)
		},
	})
}

func (ts *TextureSystem) upload(e *textureEntry, res *metadata.Resource) error {
	defer ts.assets.Unload(res)
	img, ok := res.Data.(*metadata.Image)
	if !ok {
		return fmt.Errorf("texture %s: %s is not an image", e.name, e.path)
	}
	texture, err := ts.createTexture(e.name, img)
	if err != nil {
		return err
	}
	graphics.Release(e.texture)
	e.texture = texture
	ts.log.Debug("uploaded", "texture", e.name, "width", img.Width, "height", img.Height)
	for _, fn := range ts.onLoaded {
		fn(e.name, texture)
	}
	return nil
}

func (ts *TextureSystem) createTexture(name string, img *metadata.Image) (graphics.Texture, error) {
	format := graphics.FindCompatibleFormat(ts.device.Caps(), img.Format(), graphics.FormatR8G8B8A8Unorm)
	if format == graphics.FormatUndefined {
		return nil, fmt.Errorf("%w: texture %s with %d channels", graphics.ErrUnsupportedFormat, name, img.ChannelCount)
	}
	pixels := img.Pixels
	if format != img.Format() {
		pixels = expandRGBA(img)
	}
	return ts.device.CreateTexture(graphics.TextureDesc{
		Name:       name,
		Width:      img.Width,
		Height:     img.Height,
		Depth:      1,
		MipNums:    1,
		LayerNums:  1,
		Format:     format,
		Dim:        graphics.TextureDim2D,
		Usage:      graphics.TextureUsageSampled,
		Wrap:       graphics.WrapRepeat,
		MinFilter:  graphics.FilterLinearMipmapLinear,
		MagFilter:  graphics.FilterLinear,
		Anisotropy: graphics.Anisotropy1,
		Stream:     pixels,
	})
}

// expandRGBA widens the pixels of img to four channels. Gray replicates into
// the color channels; a second gray channel is alpha.
func expandRGBA(img *metadata.Image) []uint8 {
	n := int(img.Width) * int(img.Height)
	channels := int(img.ChannelCount)
	out := make([]uint8, n*4)
	for i := 0; i < n; i++ {
		src := img.Pixels[i*channels : (i+1)*channels]
		dst := out[i*4 : i*4+4]
		dst[3] = 0xFF
		switch channels {
		case 1, 2:
			dst[0], dst[1], dst[2] = src[0], src[0], src[0]
			if channels == 2 {
				dst[3] = src[1]
			}
		default:
			copy(dst, src)
		}
	}
	return out
}

func (ts *TextureSystem) onAssetChanged(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	name, ok := ts.byPath[data.Data.S]
	if !ok {
		return false
	}
	e := ts.textures[name]
	if e.loading {
		return false
	}
	if !ts.assets.Exists(e.path) {
		ts.log.Warn("texture file removed, keeping the loaded image", "texture", name, "path", e.path)
		return false
	}
	if err := ts.load(e); err != nil {
		ts.log.Error("reload failed", "texture", name, "err", err)
	}
	return false
}

func (ts *TextureSystem) Shutdown() error {
	if ts.events != nil {
		ts.events.Unregister(core.EVENT_CODE_ASSET_CHANGED, ts)
	}
	for _, e := range ts.textures {
		graphics.Release(e.texture)
		e.texture = nil
	}
	clear(ts.textures)
	clear(ts.byPath)
	graphics.Release(ts.defaultTexture)
	graphics.Release(ts.whiteTexture)
	ts.defaultTexture = nil
	ts.whiteTexture = nil
	ts.onLoaded = nil
	return nil
}
