package ws

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans log payloads out to live subscribers keyed by topic. A topic is a
// deployment id or a project id; delivery is best-effort while connected and
// a failed send evicts the subscriber.
type Hub struct {
	topics    map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	done      chan struct{}
}

type message struct {
	topic   string
	payload []byte
}

type subscription struct {
	topic  string
	client Subscriber
}

// NewHub creates a running Hub.
func NewHub() *Hub {
	h := &Hub{
		topics:    make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.topics[sub.topic]; !ok {
				h.topics[sub.topic] = make(map[Subscriber]struct{})
			}
			h.topics[sub.topic][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.topics[sub.topic]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.topics, sub.topic)
				}
			}
		case msg := <-h.broadcast:
			clients, ok := h.topics[msg.topic]
			if !ok {
				continue
			}
			for c := range clients {
				if err := c.Send(msg.payload); err != nil {
					c.Close()
					delete(clients, c)
				}
			}
			if len(clients) == 0 {
				delete(h.topics, msg.topic)
			}
		case <-h.done:
			for topic, clients := range h.topics {
				for c := range clients {
					c.Close()
				}
				delete(h.topics, topic)
			}
			return
		}
	}
}

// Register adds a subscriber to a topic.
func (h *Hub) Register(topic string, client Subscriber) {
	select {
	case h.register <- subscription{topic: topic, client: client}:
	case <-h.done:
	}
}

// Unregister removes a subscriber. A disconnect is a no-op for producers.
func (h *Hub) Unregister(topic string, client Subscriber) {
	select {
	case h.unreg <- subscription{topic: topic, client: client}:
	case <-h.done:
	}
}

// Broadcast delivers payload to every subscriber of the topic.
func (h *Hub) Broadcast(topic string, payload []byte) {
	select {
	case h.broadcast <- message{topic: topic, payload: payload}:
	case <-h.done:
	}
}

// Close shuts the hub down and disconnects all subscribers.
func (h *Hub) Close() {
	close(h.done)
}
