// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes. These provide more specific reasons for
// closure than the standard codes.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
	FrameTooLargeError  = 3004 // Client sent a message above the configured frame size.
	OutboundFullError   = 3005 // Client stopped reading and its outbound queue filled.
)
