// Package testbed is a small scene used to try the engine out: a floor, a
// stack of spinning cubes and a point light.
package testbed

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/systems"
)

const cameraSpeed float32 = 1.0

type TestGame struct {
	*engine.Game
}

type gameState struct {
	worldCamera *components.Camera
	scene       *scene.Scene
	cubes       []scene.NodeID
	orbit       mgl32.Vec2
	distance    float32
	keys        map[uint32]bool

	width  uint32
	height uint32
}

func NewTestGame(cfg *config.Config) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Config: cfg,
			State: &gameState{
				orbit:    mgl32.Vec2{0.6, 0.4},
				distance: 18,
				keys:     make(map[uint32]bool),
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")

	if g.SystemManager == nil {
		return fmt.Errorf("the engine is not yet initialized with all the system managers")
	}
	state := g.State.(*gameState)
	sm := g.SystemManager

	brick, err := sm.MaterialSystem().Acquire("brick")
	if err != nil {
		return err
	}

	sc := scene.New("testbed")
	floor, err := sm.GeometrySystem().AcquireFromConfig(systems.GeneratePlaneConfig(20, 20, 4, 4, 8, 8, "floor", "brick"), true)
	if err != nil {
		return err
	}
	// the plane is built facing +Z
	floorTransform := math.TransformFromPositionRotation(mgl32.Vec3{0, -2, 0}, mgl32.QuatRotate(-mgl32.DegToRad(90), mgl32.Vec3{1, 0, 0}))
	if _, err := sc.Add("floor", scene.Root, floorTransform, metadata.NewMeshObject("floor", floor, brick)); err != nil {
		return err
	}

	// Each cube is parented to the previous one, so spinning the first
	// carries the others around it.
	parent := scene.Root
	offsets := []mgl32.Vec3{{0, 0, 0}, {4, 0, 0}, {2.5, 0, 0}}
	sizes := []float32{3, 2, 1}
	for i, offset := range offsets {
		name := fmt.Sprintf("cube_%d", i)
		cube, err := sm.GeometrySystem().AcquireFromConfig(systems.GenerateCubeConfig(sizes[i], sizes[i], sizes[i], 1, 1, name, "brick"), true)
		if err != nil {
			return err
		}
		id, err := sc.Add(name, parent, math.TransformFromPosition(offset), metadata.NewMeshObject(name, cube, brick))
		if err != nil {
			return err
		}
		state.cubes = append(state.cubes, id)
		parent = id
	}

	lamp := metadata.NewLightObject("lamp", &metadata.Light{
		Type:      metadata.LightPoint,
		Colour:    mgl32.Vec4{1, 0.85, 0.6, 1},
		Intensity: 1.5,
		Range:     6,
	}, nil)
	if _, err := sc.Add("lamp", scene.Root, math.TransformFromPosition(mgl32.Vec3{-3, 3, 2}), lamp); err != nil {
		return err
	}
	state.scene = sc

	state.worldCamera = sm.CameraSystem().GetDefault()
	state.worldCamera.SetScene(sc)
	g.placeCamera()

	g.Events.Register(core.EVENT_CODE_KEY_PRESSED, g, g.onKey)
	g.Events.Register(core.EVENT_CODE_KEY_RELEASED, g, g.onKey)
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	step := cameraSpeed * float32(deltaTime)

	if state.keys[platform.KeyA] {
		state.orbit[0] -= step
	}
	if state.keys[platform.KeyD] {
		state.orbit[0] += step
	}
	if state.keys[platform.KeyW] {
		state.distance = max(state.distance-10*step, 4)
	}
	if state.keys[platform.KeyS] {
		state.distance = min(state.distance+10*step, 60)
	}
	g.placeCamera()

	// Spin every cube. Children add their parent's spin to their own.
	rotation := mgl32.QuatRotate(float32(0.5*deltaTime), mgl32.Vec3{0, 1, 0})
	for _, id := range state.cubes {
		state.scene.Transform(id).Rotate(rotation)
	}
	state.scene.MarkDirty()
	return nil
}

func (g *TestGame) Render(deltaTime float64) error {
	state := g.State.(*gameState)
	state.scene.Update()
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	if state.worldCamera != nil {
		state.worldCamera.SetScene(nil)
	}
	g.Events.Unregister(core.EVENT_CODE_KEY_PRESSED, g)
	g.Events.Unregister(core.EVENT_CODE_KEY_RELEASED, g)
	return nil
}

func (g *TestGame) placeCamera() {
	state := g.State.(*gameState)
	eye := mgl32.SphericalToCartesian(state.distance, mgl32.DegToRad(90)-state.orbit[1], state.orbit[0])
	// SphericalToCartesian is Z up, the scene is Y up
	state.worldCamera.LookAt(mgl32.Vec3{eye.X(), eye.Z(), eye.Y()}, mgl32.Vec3{0, 0, 0})
}

func (g *TestGame) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	state := g.State.(*gameState)
	key := data.Data.U32[0]
	state.keys[key] = code == core.EVENT_CODE_KEY_PRESSED
	if key == platform.KeyF && code == core.EVENT_CODE_KEY_RELEASED {
		pos := state.worldCamera.Position()
		core.LogInfo("Camera Pos: [%.3f, %.3f, %.3f]", pos.X(), pos.Y(), pos.Z())
	}
	return false
}
