package cloudapi

import (
	"encoding/json"
	"net/http"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

const pingInterval = 30 * time.Second

// Stream upgrades to a websocket and pushes the latest snapshot of one family
// stream whenever it changes. Snapshots that pile up behind a slow reader are
// replaced, never queued.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	stream := remote.Stream(r.PathValue("stream"))
	if !stream.Valid() {
		writeFail(w, http.StatusBadRequest, "unknown stream")
		return
	}

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.logger.Warn("websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	latest := make(chan []byte, 1)
	push := func(v any) {
		data, err := json.Marshal(v)
		if err != nil {
			h.logger.Error("marshal snapshot", "stream", stream, "error", err)
			return
		}
		select {
		case <-latest:
		default:
		}
		latest <- data
	}

	var sub remote.Subscription
	switch stream {
	case remote.StreamFamily:
		sub, err = h.backend.SubscribeFamily(code, func(res remote.Result[*model.Family]) { push(res) })
	case remote.StreamTransactions:
		sub, err = h.backend.SubscribeTransactions(code, func(res remote.Result[[]model.Transaction]) { push(res) })
	case remote.StreamGoals:
		sub, err = h.backend.SubscribeGoals(code, func(res remote.Result[[]model.Goal]) { push(res) })
	}
	if err != nil {
		conn.Close(ws.StatusPolicyViolation, err.Error())
		return
	}
	defer sub.Unsubscribe()

	ctx := conn.CloseRead(r.Context())
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		case data := <-latest:
			if err := conn.Write(ctx, ws.MessageText, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}
