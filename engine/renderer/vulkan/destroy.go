package vulkan

import (
	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
)

const destroyQueueSize = 1024

type pendingDestroy struct {
	frame uint64
	fn    func()
}

// destroyQueue delays native destruction until the frame that last used an
// object has finished on the GPU. Entries are pushed in frame order.
type destroyQueue struct {
	queue *containers.RingQueue[pendingDestroy]
}

func newDestroyQueue(size int) *destroyQueue {
	return &destroyQueue{queue: containers.NewRingQueue[pendingDestroy](size)}
}

func (q *destroyQueue) isFull() bool {
	return q.queue.IsFull()
}

func (q *destroyQueue) len() int {
	return q.queue.Len()
}

// push schedules fn after frame. It runs fn at once when the queue is full.
func (q *destroyQueue) push(frame uint64, fn func()) {
	if err := q.queue.Enqueue(pendingDestroy{frame: frame, fn: fn}); err != nil {
		core.LogWarn("destroy queue full, destroying immediately")
		fn()
	}
}

// collect runs every entry scheduled at or before completed.
func (q *destroyQueue) collect(completed uint64) {
	for {
		next, err := q.queue.Peek()
		if err != nil || next.frame > completed {
			return
		}
		_, _ = q.queue.Dequeue()
		next.fn()
	}
}

// drain runs everything left, the caller has waited for the device.
func (q *destroyQueue) drain() {
	for !q.queue.IsEmpty() {
		next, _ := q.queue.Dequeue()
		next.fn()
	}
}
