package websocket

import "context"

type Hub struct {
	rooms      map[string]*Room
	Register   chan *WSClient
	Unregister chan *WSClient
	Broadcast  chan *WSMessage
	// done is closed when Run returns
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		Register:   make(chan *WSClient),
		Unregister: make(chan *WSClient),
		Broadcast:  make(chan *WSMessage),
		done:       make(chan struct{}),
	}
}

// Run owns the room table until ctx is done; then every client channel is closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			room, ok := h.rooms[client.RoomID]
			if !ok {
				room = &Room{ID: client.RoomID, Clients: make(map[string]*WSClient)}
				h.rooms[client.RoomID] = room
				setRooms(len(h.rooms))
			}
			room.Clients[client.ID] = client
			connectionOpened()

		case client := <-h.Unregister:
			h.drop(client)

		case message := <-h.Broadcast:
			room, ok := h.rooms[message.RoomID]
			if !ok {
				continue
			}
			delivered, dropped := 0, 0
			for _, client := range room.Clients {
				select {
				case client.Message <- message:
					delivered++
				default:
					// slow consumer
					h.drop(client)
					dropped++
				}
			}
			countDeliveries(delivered, dropped)
		}
	}
}

func (h *Hub) drop(client *WSClient) {
	room, ok := h.rooms[client.RoomID]
	if !ok {
		return
	}
	if _, ok := room.Clients[client.ID]; !ok {
		return
	}
	delete(room.Clients, client.ID)
	close(client.Message)
	connectionClosed()
	if len(room.Clients) == 0 {
		delete(h.rooms, client.RoomID)
		setRooms(len(h.rooms))
	}
}

func (h *Hub) closeAll() {
	for _, room := range h.rooms {
		for _, client := range room.Clients {
			h.drop(client)
		}
	}
}

// join registers client unless the hub has stopped.
func (h *Hub) join(client *WSClient) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters client; after Run returned every client is already gone.
func (h *Hub) leave(client *WSClient) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}
