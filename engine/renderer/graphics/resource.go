package graphics

// RefCount is embedded by backend resources. A resource starts with one
// reference owned by its creator; the destroy callback runs exactly once,
// when the last reference is released. Not safe for concurrent use, resources
// belong to the render thread.
type RefCount struct {
	refs    int32
	destroy func()
}

// InitRefs arms the counter with a single reference.
func (r *RefCount) InitRefs(destroy func()) {
	r.refs = 1
	r.destroy = destroy
}

func (r *RefCount) Retain() {
	r.refs++
}

func (r *RefCount) Release() {
	if r.refs <= 0 {
		return
	}
	r.refs--
	if r.refs == 0 && r.destroy != nil {
		destroy := r.destroy
		r.destroy = nil
		destroy()
	}
}

func (r *RefCount) Refs() int32 {
	return r.refs
}

// Alive reports whether the native resource has not been destroyed yet.
func (r *RefCount) Alive() bool {
	return r.refs > 0
}

// Retain increments the count of a possibly nil resource.
func Retain[T Resource](r T) T {
	if any(r) != nil {
		r.Retain()
	}
	return r
}

// Release drops a possibly nil resource.
func Release[T Resource](r T) {
	if any(r) != nil {
		r.Release()
	}
}

// Swap retains next, releases prev and returns next. Binding slots use it
// so that a resource never dies while something still points at it.
func Swap[T Resource](prev, next T) T {
	Retain(next)
	Release(prev)
	return next
}
