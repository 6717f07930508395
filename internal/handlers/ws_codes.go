// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes.
const (
	BadSubprotocolError = 3000 // Client connected without the mickarin subprotocol.
	ServerShutdownError = 3001 // Server is going down; the client may resume elsewhere.
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "mickarin"
