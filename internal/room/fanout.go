package room

import (
	"github.com/DoyleJ11/quizrooms/pkg/types"
)

// fanout is the room's subscriber set, keyed by player id.
type fanout struct {
	subs map[string]chan types.ServerMessage
}

func newFanout() *fanout {
	return &fanout{subs: make(map[string]chan types.ServerMessage)}
}

func (f *fanout) add(id string, ch chan types.ServerMessage) { f.subs[id] = ch }

func (f *fanout) remove(id string) {
	if ch, ok := f.subs[id]; ok {
		close(ch)
		delete(f.subs, id)
	}
}

func (f *fanout) closeAll() {
	for id := range f.subs {
		f.remove(id)
	}
}

func (f *fanout) len() int { return len(f.subs) }

// publish sends msg to one subscriber, or everyone when to is empty.
// Full outboxes are dropped and their ids returned; the connection then
// leaves through the normal disconnect path.
func (f *fanout) publish(to string, msg types.ServerMessage) []string {
	var dropped []string
	send := func(id string, ch chan types.ServerMessage) {
		select {
		case ch <- msg:
		default:
			dropped = append(dropped, id)
		}
	}

	if to != "" {
		if ch, ok := f.subs[to]; ok {
			send(to, ch)
		}
	} else {
		for id, ch := range f.subs {
			send(id, ch)
		}
	}

	for _, id := range dropped {
		f.remove(id)
	}
	return dropped
}
