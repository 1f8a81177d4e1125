package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

func cameraNames(cameras []*components.Camera) []string {
	names := make([]string, len(cameras))
	for i, c := range cameras {
		names[i] = c.Name()
	}
	return names
}

func TestCameraSystemAcquireRelease(t *testing.T) {
	cs, err := NewCameraSystem(CameraSystemConfig{MaxCameraCount: 2})
	require.NoError(t, err)

	def, err := cs.Acquire(components.DefaultCameraName)
	require.NoError(t, err)
	assert.Same(t, cs.GetDefault(), def)

	a, err := cs.Acquire("a")
	require.NoError(t, err)
	again, err := cs.Acquire("a")
	require.NoError(t, err)
	assert.Same(t, a, again)

	_, err = cs.Acquire("b")
	require.NoError(t, err)
	_, err = cs.Acquire("c")
	assert.ErrorIs(t, err, ErrTooManyCameras)

	cs.Release("a")
	assert.Contains(t, cs.lookup, "a")
	cs.Release("a")
	assert.NotContains(t, cs.lookup, "a")

	// the default camera cannot be released
	cs.Release(components.DefaultCameraName)
	assert.Same(t, def, cs.GetDefault())

	require.NoError(t, cs.Shutdown())
	assert.Empty(t, cs.lookup)

	_, err = NewCameraSystem(CameraSystemConfig{})
	assert.Error(t, err)
}

func TestCameraSystemRenderOrder(t *testing.T) {
	cs, err := NewCameraSystem(CameraSystemConfig{MaxCameraCount: 8})
	require.NoError(t, err)

	shadow, err := cs.Acquire("sun")
	require.NoError(t, err)
	shadow.SetOrder(metadata.CameraOrderShadow)
	overlay, err := cs.Acquire("overlay")
	require.NoError(t, err)
	overlay.SetOrder(metadata.CameraOrderCustom)
	_, err = cs.Acquire("mirror")
	require.NoError(t, err)

	cs.GetDefault().SetOrder(metadata.CameraOrderMain)
	cs.lookup["mirror"].Camera.SetOrder(metadata.CameraOrderMain)

	assert.Equal(t, []string{"sun", components.DefaultCameraName, "mirror", "overlay"}, cameraNames(cs.Cameras()))

	// order changes are picked up without re-registering
	overlay.SetOrder(metadata.CameraOrderShadow)
	assert.Equal(t, []string{"overlay", "sun", components.DefaultCameraName, "mirror"}, cameraNames(cs.Cameras()))

	cs.Release("sun")
	assert.Equal(t, []string{"overlay", components.DefaultCameraName, "mirror"}, cameraNames(cs.Cameras()))
}
