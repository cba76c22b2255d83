package vm

// heap is the arena every Array, Tuple, Dict, Fn, Native and Context lives
// in. Slot 0 is reserved so that the zero Handle is never valid.
type heap struct {
	objects []object
	free    []Handle
	live    int

	threshold int
	cycles    int
	lastFreed int
}

// DefaultGCThreshold is the live object count that triggers the first cycle.
const DefaultGCThreshold = 1024

func newHeap(threshold int) *heap {
	if threshold <= 0 {
		threshold = DefaultGCThreshold
	}
	return &heap{
		objects:   make([]object, 1, 256),
		threshold: threshold,
	}
}

func (h *heap) alloc(o object) Handle {
	h.live++
	if n := len(h.free); n > 0 {
		slot := h.free[n-1]
		h.free = h.free[:n-1]
		h.objects[slot] = o
		return slot
	}
	h.objects = append(h.objects, o)
	return Handle(len(h.objects) - 1)
}

// get returns the object in slot, or nil for a free or out of range slot.
func (h *heap) get(slot Handle) *object {
	if slot == 0 || int(slot) >= len(h.objects) {
		return nil
	}
	o := &h.objects[slot]
	if o.kind == slotFree {
		return nil
	}
	return o
}

func (h *heap) context(slot Handle) *Context {
	if o := h.get(slot); o != nil && o.kind == slotContext {
		return o.ctx
	}
	return nil
}

func (h *heap) newContext(parent Handle) Handle {
	return h.alloc(object{kind: slotContext, ctx: &Context{Parent: parent}})
}

func (h *heap) needsCollect() bool {
	return h.live >= h.threshold
}
