package gateway

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"collab-gateway/domain/event"
	"collab-gateway/errors"
	"collab-gateway/ratelimit"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/samber/lo"
)

// HistoryPage is one page of chat history, newest first.
type HistoryPage struct {
	RoomID     domain.RoomID    `json:"roomId"`
	Messages   []HistoryMessage `json:"messages"`
	NextCursor *string          `json:"nextCursor,omitempty"`
}

type HistoryMessage struct {
	event.ChatPayload
	Reactions map[string][]domain.PrincipalID `json:"reactions,omitempty"`
}

// HistoryHandler serves GET /rooms/{roomId}/messages?cursor= to members of
// the room, so a reconnecting client can reload what it missed.
// Authenticated requests are accounted to their principal, the others to
// their client address.
type HistoryHandler struct {
	log           *slog.Logger
	authenticator contract.Authenticator
	store         contract.SessionStore
	quota         *ratelimit.Ledger
	address       ratelimit.Subject
}

func NewHistoryHandler(log *slog.Logger, authenticator contract.Authenticator, store contract.SessionStore,
	quota *ratelimit.Ledger, address ratelimit.Subject) *HistoryHandler {
	return &HistoryHandler{log: log, authenticator: authenticator, store: store, quota: quota, address: address}
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := h.authenticator.Authenticate(ctx, BearerToken(r))
	if err != nil {
		if h.quota.Allow(w, r, domain.LimitHTTP, h.address(r)) {
			h.fail(w, err)
		}
		return
	}
	if !h.quota.Allow(w, r, domain.LimitHTTP, "principal:"+string(principal.ID)) {
		return
	}

	roomID := domain.RoomID(r.PathValue("roomId"))
	if err = event.ValidateRoomID(roomID); err != nil {
		h.fail(w, err)
		return
	}
	if _, err = h.store.Authorize(ctx, principal.ID, roomID); err != nil {
		h.fail(w, err)
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	messages, next, err := h.store.Messages(ctx, roomID, cursor)
	if err != nil {
		h.fail(w, err)
		return
	}

	page := HistoryPage{
		RoomID: roomID,
		Messages: lo.Map(messages, func(m domain.ChatMessage, _ int) HistoryMessage {
			return HistoryMessage{ChatPayload: event.ChatPayloadOf(m), Reactions: m.Reactions}
		}),
	}
	if len(messages) > 0 && next != nil && *next != "" {
		page.NextCursor = next
	}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(page); err != nil {
		h.log.Debug("History response not written", "room_id", roomID, "error", err)
	}
}

func (h *HistoryHandler) fail(w http.ResponseWriter, err error) {
	code := errors.Code(err)
	switch {
	case errors.IsAuthFailure(err):
		h.log.Warn("History request refused", "code", code, "error", err)
		writeError(w, http.StatusUnauthorized, err.Error(), code)
	case stderrors.Is(err, errors.ErrMalformedEvent):
		writeError(w, http.StatusBadRequest, err.Error(), code)
	case stderrors.Is(err, errors.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, err.Error(), code)
	case stderrors.Is(err, errors.ErrAccessDenied):
		h.log.Warn("History request refused", "code", code, "error", err)
		writeError(w, http.StatusForbidden, err.Error(), code)
	default:
		h.log.Error("History request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", errors.CodeInternal)
	}
}
