// Package events fans domain events out to WebSocket subscribers. Events
// enter through the Redis broadcast channel and leave through a hub that
// owns every connected client.
package events

// Hub owns the client set and broadcasts each inbound message to all of
// them. All client-set mutation happens on the Run goroutine.
type Hub struct {
	clients map[*Client]bool

	// Inbound messages to broadcast to all clients.
	broadcast chan []byte

	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				_ = client.conn.Close()
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow consumer, drop it
					delete(h.clients, client)
					close(client.send)
					_ = client.conn.Close()
				}
			}
		}
	}
}
