package qult

import (
	"pkt.systems/qult/core"
	"pkt.systems/qult/schema"
)

// fanout delivers each event to every non-nil emitter in order.
func fanout(emitters ...core.EmitFunc) core.EmitFunc {
	active := make([]core.EmitFunc, 0, len(emitters))
	for _, emit := range emitters {
		if emit != nil {
			active = append(active, emit)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(event schema.Event) {
		for _, emit := range active {
			emit(event)
		}
	}
}
