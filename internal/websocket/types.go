package websocket

type Room struct {
	ID      string
	Clients map[string]*WSClient
}

// WSMessage carries one already-encoded payload to every client of a room.
type WSMessage struct {
	Content   string `json:"content"`
	RoomID    string `json:"roomId"`
	Timestamp int64  `json:"timestamp"`
}
