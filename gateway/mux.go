package gateway

import (
	"collab-gateway/domain"
	"collab-gateway/ratelimit"
	"net/http"
)

// NewMux routes the public listener. The websocket handshake is accounted
// to the client address before authentication; the history API does its own
// accounting.
func NewMux(server *Server, history *HistoryHandler, ledger *ratelimit.Ledger, address ratelimit.Subject) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", ledger.Middleware(domain.LimitHTTP, address, server))
	mux.Handle("GET /rooms/{roomId}/messages", history)
	return mux
}
