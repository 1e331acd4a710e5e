package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches conn to the hub and blocks until the peer goes away.
func ServeWs(hub *Hub, conn *websocket.Conn, sessionID string) {
	client := &Client{Hub: hub, Conn: conn, SessionID: sessionID, Send: make(chan []byte, sendBuffer)}
	if !hub.attach(client) {
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
