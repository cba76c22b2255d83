package vm

// Stats describes the collector.
type Stats struct {
	Live      int
	Threshold int
	Cycles    int
	LastFreed int
}

func (m *Machine) Stats() Stats {
	return Stats{
		Live:      m.heap.live,
		Threshold: m.heap.threshold,
		Cycles:    m.heap.cycles,
		LastFreed: m.heap.lastFreed,
	}
}

// Collect forces a full collection and returns the number of freed slots.
func (m *Machine) Collect() int {
	return m.collect()
}

// Pin keeps h alive across collections until a matching Unpin.
func (m *Machine) Pin(h Handle) {
	if h != 0 {
		m.pinned[h]++
	}
}

func (m *Machine) Unpin(h Handle) {
	if n := m.pinned[h]; n > 1 {
		m.pinned[h] = n - 1
	} else {
		delete(m.pinned, h)
	}
}

// UnpinLater queues h for Unpin before the next collection. Unlike Unpin
// it may be called from any goroutine, including a cleanup.
func (m *Machine) UnpinLater(h Handle) {
	m.releaseMu.Lock()
	m.released = append(m.released, h)
	m.releaseMu.Unlock()
}

func (m *Machine) drainReleased() {
	m.releaseMu.Lock()
	released := m.released
	m.released = nil
	m.releaseMu.Unlock()
	for _, h := range released {
		m.Unpin(h)
	}
}

func (m *Machine) collect() int {
	m.drainReleased()
	work := m.roots()
	m.mark(work)
	freed := m.sweep()

	h := m.heap
	h.cycles++
	h.lastFreed = freed
	if h.live >= h.threshold {
		h.threshold *= 2
	}
	m.gcLog.Debugf("%s: gc cycle %d freed %d, live %d, threshold %d", m.id, h.cycles, freed, h.live, h.threshold)
	return freed
}

// roots gathers the global context, pinned handles and everything held by
// every execution state, active or parked.
func (m *Machine) roots() []Handle {
	work := []Handle{m.global}
	for h := range m.pinned {
		work = append(work, h)
	}
	for _, st := range m.states {
		work = append(work, st.ctx)
		work = append(work, st.roots...)
		for _, v := range st.stack {
			work = appendValue(work, v)
		}
		for _, f := range st.frames {
			work = append(work, f.ctx)
		}
		for _, t := range st.tries {
			work = append(work, t.ctx)
		}
		work = appendValue(work, st.result)
	}
	return work
}

func appendValue(work []Handle, v Value) []Handle {
	if v.Kind.IsHeap() {
		work = append(work, v.H)
	}
	return work
}

// mark is an iterative depth-first walk over an explicit worklist.
func (m *Machine) mark(work []Handle) {
	for len(work) > 0 {
		slot := work[len(work)-1]
		work = work[:len(work)-1]

		o := m.heap.get(slot)
		if o == nil || o.marked {
			continue
		}
		o.marked = true

		switch o.kind {
		case slotArray, slotTuple:
			for _, v := range o.items {
				work = appendValue(work, v)
			}
		case slotDict:
			for _, v := range o.dict.values {
				work = appendValue(work, v)
			}
		case slotFn:
			if o.fn.Ctx != 0 {
				work = append(work, o.fn.Ctx)
			}
		case slotContext:
			for _, v := range o.ctx.values {
				work = appendValue(work, v)
			}
			if o.ctx.Parent != 0 {
				work = append(work, o.ctx.Parent)
			}
		}
	}
}

// sweep frees every unmarked slot and clears the marks on survivors.
func (m *Machine) sweep() int {
	h := m.heap
	freed := 0
	for i := 1; i < len(h.objects); i++ {
		o := &h.objects[i]
		if o.kind == slotFree {
			continue
		}
		if o.marked {
			o.marked = false
			continue
		}
		*o = object{}
		h.free = append(h.free, Handle(i))
		freed++
	}
	h.live -= freed
	return freed
}
