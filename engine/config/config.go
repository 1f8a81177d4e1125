package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Application struct {
	Name   string `toml:"name"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type Graphics struct {
	Device graphics.DeviceType `toml:"device"`
	// Fallback is tried in order when Device cannot be set up.
	Fallback []graphics.DeviceType `toml:"fallback"`
	Debug    bool                  `toml:"debug"`
	VSync    bool                  `toml:"vsync"`
	// FramesInFlight is the swapchain image count on backends that support it.
	FramesInFlight uint32 `toml:"frames_in_flight"`
}

type Log struct {
	Level string `toml:"level"`
}

type Assets struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

type DepthOfField struct {
	Enabled  bool    `toml:"enabled"`
	Material string  `toml:"material"`
	Focus    float32 `toml:"focus"`
	Range    float32 `toml:"range"`
}

type PostProcess struct {
	DepthOfField DepthOfField `toml:"dof"`
}

type Render struct {
	// LightMaterial draws lights; empty disables light drawing.
	LightMaterial string `toml:"light_material"`
	MaxMaterials  uint32 `toml:"max_materials"`
	MaxTextures   uint32 `toml:"max_textures"`
	MaxGeometries uint32 `toml:"max_geometries"`
	MaxShaders    uint16 `toml:"max_shaders"`
	// Workers is the number of texture loading goroutines.
	Workers int `toml:"workers"`
}

/** @brief Engine configuration, read from a TOML file. */
type Config struct {
	Application Application `toml:"application"`
	Graphics    Graphics    `toml:"graphics"`
	Log         Log         `toml:"log"`
	Assets      Assets      `toml:"assets"`
	Render      Render      `toml:"render"`
	PostProcess PostProcess `toml:"postprocess"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Application: Application{
			Name:   "Prism",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Graphics: Graphics{
			Device:         graphics.DeviceTypeOpenGLCore,
			Fallback:       []graphics.DeviceType{graphics.DeviceTypeOpenGLES3, graphics.DeviceTypeOpenGLES2},
			VSync:          true,
			FramesInFlight: 2,
		},
		Log: Log{Level: "info"},
		Assets: Assets{
			Path:  "assets",
			Watch: true,
		},
		Render: Render{
			LightMaterial: "light",
			MaxMaterials:  1024,
			MaxTextures:   1024,
			MaxGeometries: 4096,
			MaxShaders:    256,
			Workers:       2,
		},
		PostProcess: PostProcess{
			DepthOfField: DepthOfField{
				Material: "dof",
				Focus:    10,
				Range:    20,
			},
		},
	}
}

// Load reads path on top of Default. Keys missing from the file keep their
// default value.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	cfg := Default()
	d := toml.NewDecoder(bytes.NewReader(b))
	d.DisallowUnknownFields()
	if err := d.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%w: line %d column %d: %s", ErrInvalidConfig, row, col, derr.Error())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Application.Width == 0 || c.Application.Height == 0 {
		return fmt.Errorf("%w: application size must be positive", ErrInvalidConfig)
	}
	if c.Graphics.Device == graphics.DeviceTypeNone {
		return fmt.Errorf("%w: graphics.device is required", ErrInvalidConfig)
	}
	if c.Graphics.FramesInFlight == 0 || c.Graphics.FramesInFlight > 3 {
		return fmt.Errorf("%w: graphics.frames_in_flight must be 1, 2 or 3", ErrInvalidConfig)
	}
	if r := c.Render; r.MaxMaterials == 0 || r.MaxTextures == 0 || r.MaxGeometries == 0 || r.MaxShaders == 0 {
		return fmt.Errorf("%w: render limits must be positive", ErrInvalidConfig)
	}
	if c.Assets.Path == "" {
		return fmt.Errorf("%w: assets.path is required", ErrInvalidConfig)
	}
	if dof := c.PostProcess.DepthOfField; dof.Enabled && (dof.Material == "" || dof.Range <= 0) {
		return fmt.Errorf("%w: postprocess.dof needs a material and a positive range", ErrInvalidConfig)
	}
	return nil
}

// Devices returns the preferred device followed by the fallbacks, without
// duplicates.
func (c *Config) Devices() []graphics.DeviceType {
	out := []graphics.DeviceType{c.Graphics.Device}
	for _, t := range c.Graphics.Fallback {
		dup := false
		for _, o := range out {
			if o == t {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, t)
		}
	}
	return out
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	b, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
