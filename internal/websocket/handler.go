package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades connections and runs them as Hub clients. When
// snapshot is non-nil its messages are sent first so a new client starts
// from the current state.
func HandleWebSocket(hub *Hub, logger *slog.Logger, snapshot func() []Message) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // UI may be served from another origin on the LAN
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		var initial []Message
		if snapshot != nil {
			initial = snapshot()
		}
		NewClient(hub, conn).Run(r.Context(), initial...)
	}
}
