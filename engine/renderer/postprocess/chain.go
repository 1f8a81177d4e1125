package postprocess

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

/**
 * @brief An ordered list of stages. Intermediate results ping-pong between
 * two chain owned targets and the last stage writes the destination. The
 * targets own their depth attachments; stages sample the scene depth through
 * Pipeline.SceneDepth, which is never attached to a chain target.
 */
type Chain struct {
	stages  []Stage
	targets [2]graphics.Framebuffer
	width   uint32
	height  uint32
	log     *log.Logger
}

func NewChain() *Chain {
	return &Chain{log: core.Logger().With("system", "postprocess")}
}

// Add sets the stage up and appends it to the chain.
func (c *Chain) Add(p Pipeline, stage Stage) error {
	if err := stage.Setup(p); err != nil {
		return fmt.Errorf("post-process stage %s: %w", stage.Name(), err)
	}
	c.stages = append(c.stages, stage)
	c.log.Debug("stage added", "stage", stage.Name(), "stages", len(c.stages))
	return nil
}

func (c *Chain) Len() int {
	return len(c.stages)
}

func (c *Chain) Stages() []Stage {
	return c.stages
}

func (c *Chain) ensureTargets(p Pipeline, src graphics.Framebuffer) error {
	width, height := sizeOf(src)
	if c.targets[0] != nil && c.width == width && c.height == height {
		return nil
	}
	c.releaseTargets()
	for i := range c.targets {
		fb, err := NewRenderTarget(p.Device(), TargetDesc{
			Name:   fmt.Sprintf("postprocess.ping%d", i),
			Layout: p.TargetLayout(),
			Width:  width,
			Height: height,
		})
		if err != nil {
			c.releaseTargets()
			return err
		}
		c.targets[i] = fb
	}
	c.width, c.height = width, height
	return nil
}

// Render runs every stage in order. With no stages nothing is drawn.
func (c *Chain) Render(p Pipeline, src, dst graphics.Framebuffer) error {
	if len(c.stages) == 0 {
		return nil
	}
	if len(c.stages) > 1 {
		if err := c.ensureTargets(p, src); err != nil {
			return err
		}
	}
	in := src
	for i, stage := range c.stages {
		out := dst
		if i < len(c.stages)-1 {
			out = c.targets[i%2]
		}
		if err := stage.Render(p, in, out); err != nil {
			return fmt.Errorf("post-process stage %s: %w", stage.Name(), err)
		}
		in = out
	}
	return nil
}

func (c *Chain) releaseTargets() {
	for i := range c.targets {
		graphics.Release(c.targets[i])
		c.targets[i] = nil
	}
}

// Close closes every stage and releases the intermediate targets.
func (c *Chain) Close() {
	for _, stage := range c.stages {
		stage.Close()
	}
	c.stages = nil
	c.releaseTargets()
}
