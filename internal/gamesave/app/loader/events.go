package loader

import "sync"

type EventKind string

const (
	EventLoaded  EventKind = "loaded"
	EventEvicted EventKind = "evicted"
	EventFailed  EventKind = "failed"
)

// Event 是推送给订阅方的一次加载/驱逐进度。
type Event struct {
	Kind            EventKind `json:"kind"`
	Name            string    `json:"name"`
	Objects         int       `json:"objects"`
	ResidentObjects int       `json:"resident_objects"`
	Pending         int       `json:"pending"`
	UnknownKeys     int       `json:"unknown_keys,omitempty"`
	BadValues       int       `json:"bad_values,omitempty"`
	Error           string    `json:"error,omitempty"`
}

type hub struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan Event
}

// subscribe 返回事件通道与取消函数；消费太慢时事件被丢弃，不阻塞加载。
func (h *hub) subscribe(buf int) (<-chan Event, func()) {
	ch := make(chan Event, max(1, buf))
	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[int]chan Event)
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *hub) publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
