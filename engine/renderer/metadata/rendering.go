package metadata

import (
	"fmt"
	"strings"
)

/** @brief The queue a material technique submits its passes to. */
type RenderQueue uint8

const (
	/** @brief Solid geometry, drawn front to back. */
	RenderQueueOpaque RenderQueue = iota
	/** @brief Blended geometry, drawn after lighting. */
	RenderQueueTransparent
	/** @brief Lights, drawn with the light material over a full screen quad. */
	RenderQueueLighting
)

// RenderQueueCount is the number of render queues.
const RenderQueueCount = 3

var renderQueueNames = [RenderQueueCount]string{
	RenderQueueOpaque:      "opaque",
	RenderQueueTransparent: "transparent",
	RenderQueueLighting:    "lighting",
}

func (q RenderQueue) String() string {
	if int(q) < RenderQueueCount {
		return renderQueueNames[q]
	}
	return fmt.Sprintf("RenderQueue(%d)", uint8(q))
}

func (q RenderQueue) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

func (q *RenderQueue) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range renderQueueNames {
		if n == name {
			*q = RenderQueue(i)
			return nil
		}
	}
	return fmt.Errorf("unknown render queue %q", text)
}

/** @brief The pass inside a render queue a material pass is drawn in. */
type RenderPass uint8

const (
	RenderPassOpaques RenderPass = iota
	/** @brief Passes a queue draws with a material specific pipeline, after its main pass. */
	RenderPassSpecific
	RenderPassTransparent
	RenderPassLights
)

// RenderPassCount is the number of render passes.
const RenderPassCount = 4

var renderPassNames = [RenderPassCount]string{
	RenderPassOpaques:     "opaques",
	RenderPassSpecific:    "specific",
	RenderPassTransparent: "transparent",
	RenderPassLights:      "lights",
}

func (p RenderPass) String() string {
	if int(p) < RenderPassCount {
		return renderPassNames[p]
	}
	return fmt.Sprintf("RenderPass(%d)", uint8(p))
}

func (p RenderPass) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *RenderPass) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range renderPassNames {
		if n == name {
			*p = RenderPass(i)
			return nil
		}
	}
	return fmt.Errorf("unknown render pass %q", text)
}

/** @brief A queue and pass pair, one bucket of the per camera render lists. */
type RenderBucket struct {
	Queue RenderQueue
	Pass  RenderPass
}

func (b RenderBucket) String() string {
	return b.Queue.String() + "/" + b.Pass.String()
}

// DrawOrder is the order the render pipeline draws buckets in.
var DrawOrder = []RenderBucket{
	{RenderQueueOpaque, RenderPassOpaques},
	{RenderQueueOpaque, RenderPassSpecific},
	{RenderQueueLighting, RenderPassLights},
	{RenderQueueTransparent, RenderPassTransparent},
	{RenderQueueTransparent, RenderPassSpecific},
}

/** @brief When a camera renders relative to the others. Lower orders render first. */
type CameraOrder uint8

const (
	/** @brief Shadow map cameras. Only shadow casters are assigned. */
	CameraOrderShadow CameraOrder = iota
	CameraOrderMain
	CameraOrderCustom
)

func (o CameraOrder) String() string {
	switch o {
	case CameraOrderShadow:
		return "shadow"
	case CameraOrderMain:
		return "main"
	case CameraOrderCustom:
		return "custom"
	}
	return fmt.Sprintf("CameraOrder(%d)", uint8(o))
}
