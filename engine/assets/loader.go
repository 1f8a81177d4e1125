package assets

import (
	"io/fs"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// Loader turns one file of the asset tree into a resource. params is loader
// specific and may be nil.
type Loader interface {
	Load(fsys fs.FS, path string, params interface{}) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
