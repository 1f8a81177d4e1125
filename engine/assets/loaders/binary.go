package loaders

import (
	"io/fs"
	"path"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/** @brief Loads a file as raw bytes. Text files use the same loader. */
type BinaryLoader struct {
	Type metadata.ResourceType
}

func (bl *BinaryLoader) Load(fsys fs.FS, name string, params interface{}) (*metadata.Resource, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     path.Base(name),
		Type:     bl.Type,
		FullPath: name,
		DataSize: uint64(len(b)),
		Data:     b,
	}, nil
}

func (bl *BinaryLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}
