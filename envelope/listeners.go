package envelope

type listener[F any] struct {
	id uint64
	fn F
}

// listeners is an ordered list of callbacks that can be removed by the
// function returned from add, including from inside a callback.
type listeners[F any] struct {
	next uint64
	list []listener[F]
}

func (l *listeners[F]) add(fn F) func() {
	l.next++
	id := l.next
	l.list = append(l.list, listener[F]{id: id, fn: fn})
	return func() { l.remove(id) }
}

func (l *listeners[F]) remove(id uint64) {
	for n, ln := range l.list {
		if ln.id == id {
			// copy so an iteration in progress keeps its snapshot
			list := make([]listener[F], 0, len(l.list)-1)
			list = append(list, l.list[:n]...)
			l.list = append(list, l.list[n+1:]...)
			return
		}
	}
}

func (l *listeners[F]) each(f func(F)) {
	for _, ln := range l.list {
		f(ln.fn)
	}
}
