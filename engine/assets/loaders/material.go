package loaders

import (
	"bytes"
	"fmt"
	"io/fs"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"gopkg.in/yaml.v3"
)

/** @brief Loads *.material.yaml files into a metadata.MaterialConfig. */
type MaterialLoader struct{}

func (ml *MaterialLoader) Load(fsys fs.FS, name string, params interface{}) (*metadata.Resource, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseMaterial(b)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", name, err)
	}
	return &metadata.Resource{
		Name:     cfg.Name,
		Type:     metadata.ResourceTypeMaterial,
		FullPath: name,
		DataSize: uint64(len(b)),
		Data:     cfg,
	}, nil
}

func (ml *MaterialLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}

// ParseMaterial decodes and validates a material definition. Unknown keys
// are rejected.
func ParseMaterial(b []byte) (*metadata.MaterialConfig, error) {
	cfg := &metadata.MaterialConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
