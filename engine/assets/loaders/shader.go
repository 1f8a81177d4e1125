package loaders

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const spirvMagic = 0x07230203

var ErrInvalidShader = errors.New("invalid shader code")

/**
 * @brief Loads one shader stage. GLSL variants are kept as source text,
 * SPIR-V files must carry the SPIR-V magic number and a whole number of words.
 */
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(fsys fs.FS, name string, params interface{}) (*metadata.Resource, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidShader, name)
	}
	if path.Ext(name) == ".spv" {
		if len(b)%4 != 0 || binary.LittleEndian.Uint32(b) != spirvMagic {
			return nil, fmt.Errorf("%w: %s is not SPIR-V", ErrInvalidShader, name)
		}
	}
	return &metadata.Resource{
		Name:     strings.SplitN(path.Base(name), ".", 2)[0],
		Type:     metadata.ResourceTypeShader,
		FullPath: name,
		DataSize: uint64(len(b)),
		Data:     b,
	}, nil
}

func (sl *ShaderLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}
