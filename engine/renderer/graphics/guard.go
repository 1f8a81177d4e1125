package graphics

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
)

// Guard applies the context precondition policy: debug contexts panic,
// release contexts log and keep the first failure of the frame.
type Guard struct {
	Debug bool
	err   error
}

// Fail reports a violated precondition of op.
func (g *Guard) Fail(op string, err error) {
	err = fmt.Errorf("%s: %w", op, err)
	if g.Debug {
		panic(err)
	}
	core.LogError("%s", err)
	if g.err == nil {
		g.err = err
	}
}

// Check fails op with err unless ok holds, and returns ok.
func (g *Guard) Check(ok bool, op string, err error) bool {
	if !ok {
		g.Fail(op, err)
	}
	return ok
}

// Err returns the first failure since the last Reset.
func (g *Guard) Err() error {
	return g.err
}

func (g *Guard) Reset() {
	g.err = nil
}
