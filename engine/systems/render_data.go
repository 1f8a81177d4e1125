package systems

import (
	"cmp"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"golang.org/x/exp/slices"
)

var (
	ErrNilCamera          = errors.New("render data: nil camera")
	ErrCameraWithoutScene = errors.New("render data: camera has no scene")
)

/** @brief One queued draw: an object and the material pass to draw it with. Lights carry no pass. */
type RenderDraw struct {
	Object *metadata.RenderObject
	Pass   *metadata.MaterialPass
}

type renderBucket struct {
	objects []*metadata.RenderObject
	draws   []RenderDraw
}

func (b *renderBucket) reset() {
	clear(b.objects)
	clear(b.draws)
	b.objects = b.objects[:0]
	b.draws = b.draws[:0]
}

func (b *renderBucket) add(object *metadata.RenderObject, pass *metadata.MaterialPass) {
	b.objects = append(b.objects, object)
	b.draws = append(b.draws, RenderDraw{Object: object, Pass: pass})
}

/**
 * @brief Turns the visible set of a camera into per queue and pass render
 * lists. The lists are rebuilt by every AssignVisible call and stay valid
 * until the next one.
 */
type RenderDataManager struct {
	visible metadata.OcclusionCullList
	buckets [metadata.RenderQueueCount][metadata.RenderPassCount]renderBucket
	log     *log.Logger
}

func NewRenderDataManager() *RenderDataManager {
	return &RenderDataManager{
		log: core.Logger().With("system", "render_data"),
	}
}

// AssignVisible collects what camera sees from its scene, sorts it by
// material then by distance, and sorts it into buckets.
func (m *RenderDataManager) AssignVisible(camera *components.Camera) error {
	for q := range m.buckets {
		for p := range m.buckets[q] {
			m.buckets[q][p].reset()
		}
	}
	m.visible.Clear()

	if camera == nil {
		return ErrNilCamera
	}
	scene := camera.Scene()
	if scene == nil {
		return ErrCameraWithoutScene
	}

	scene.ComputeVisible(camera.ViewProject(), &m.visible)

	nodes := m.visible.Nodes()
	// one stable pass on (material, distance) equals a material sort
	// followed by a distance sort inside each material run
	slices.SortStableFunc(nodes, func(a, b metadata.OcclusionCullNode) int {
		if c := cmp.Compare(a.Object.Material.Key(), b.Object.Material.Key()); c != 0 {
			return c
		}
		return cmp.Compare(a.Distance, b.Distance)
	})

	shadow := camera.Order() == metadata.CameraOrderShadow
	for _, node := range nodes {
		object := node.Object
		if shadow && !object.CastShadow {
			continue
		}
		if object.Listener != nil {
			object.Listener.OnWillRenderObject(camera)
		}
		switch object.Kind {
		case metadata.RenderObjectLight:
			m.buckets[metadata.RenderQueueLighting][metadata.RenderPassLights].add(object, nil)
		case metadata.RenderObjectMesh:
			if object.Material == nil {
				continue
			}
			for _, technique := range object.Material.Techniques {
				if int(technique.Queue) >= metadata.RenderQueueCount {
					continue
				}
				for _, pass := range technique.Passes {
					if int(pass.Pass) >= metadata.RenderPassCount {
						continue
					}
					m.buckets[technique.Queue][pass.Pass].add(object, pass)
				}
			}
		}
	}
	m.log.Debug("assigned", "camera", camera.Name(), "visible", len(nodes))
	return nil
}

// Visible returns the sorted visible set of the last AssignVisible call.
func (m *RenderDataManager) Visible() []metadata.OcclusionCullNode {
	return m.visible.Nodes()
}

// Bucket returns the objects queued under queue and pass.
func (m *RenderDataManager) Bucket(queue metadata.RenderQueue, pass metadata.RenderPass) []*metadata.RenderObject {
	if int(queue) >= metadata.RenderQueueCount || int(pass) >= metadata.RenderPassCount {
		return nil
	}
	return m.buckets[queue][pass].objects
}

// Draws returns the queued draws of a bucket, aligned with Bucket.
func (m *RenderDataManager) Draws(queue metadata.RenderQueue, pass metadata.RenderPass) []RenderDraw {
	if int(queue) >= metadata.RenderQueueCount || int(pass) >= metadata.RenderPassCount {
		return nil
	}
	return m.buckets[queue][pass].draws
}
