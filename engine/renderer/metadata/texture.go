package metadata

const (
	/** @brief The default texture name. */
	DefaultTextureName string = "default"
	/** @brief A 1x1 white texture. */
	WhiteTextureName string = "white"
)

type TextureReference struct {
	ReferenceCount uint64
	AutoRelease    bool
}
