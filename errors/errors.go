package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Handshake failures. All of them are terminal for the connection.
	ErrInvalidToken     = fmt.Errorf("invalid token")
	ErrExpiredToken     = fmt.Errorf("expired token")
	ErrUnknownPrincipal = fmt.Errorf("unknown principal")

	// Room scoped failures, the connection stays open.
	ErrRoomNotFound = fmt.Errorf("room not found")
	ErrAccessDenied = fmt.Errorf("access denied")
	ErrNotInRoom    = fmt.Errorf("connection is not in this room")

	ErrQuotaExceeded    = fmt.Errorf("quota exceeded")
	ErrStoreUnavailable = fmt.Errorf("store unavailable")
	ErrMalformedEvent   = fmt.Errorf("malformed event")
	ErrContentTooLong   = fmt.Errorf("content too long")
	ErrMessageNotFound  = fmt.Errorf("message not found")
	ErrUserNotFound     = fmt.Errorf("user not found")
	ErrUserExists       = fmt.Errorf("user already exists")
	ErrRoomExists       = fmt.Errorf("room already exists")
)

// Wire codes sent to clients inside error events.
const (
	CodeInvalidToken     = "invalid_token"
	CodeExpiredToken     = "expired_token"
	CodeUnknownPrincipal = "unknown_principal"
	CodeRoomNotFound     = "room_not_found"
	CodeAccessDenied     = "access_denied"
	CodeNotInRoom        = "not_in_room"
	CodeQuotaExceeded    = "quota_exceeded"
	CodeMalformedEvent   = "malformed_event"
	CodeContentTooLong   = "content_too_long"
	CodeMessageNotFound  = "message_not_found"
	CodeInternal         = "internal_error"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidToken, CodeInvalidToken},
	{ErrExpiredToken, CodeExpiredToken},
	{ErrUnknownPrincipal, CodeUnknownPrincipal},
	{ErrRoomNotFound, CodeRoomNotFound},
	{ErrAccessDenied, CodeAccessDenied},
	{ErrNotInRoom, CodeNotInRoom},
	{ErrQuotaExceeded, CodeQuotaExceeded},
	{ErrMalformedEvent, CodeMalformedEvent},
	{ErrContentTooLong, CodeContentTooLong},
	{ErrMessageNotFound, CodeMessageNotFound},
}

// Code maps an error to the stable code exposed to clients.
// Anything outside the taxonomy is reported as an internal error.
func Code(err error) string {
	for _, c := range codes {
		if stderrors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// IsAuthFailure reports whether err must refuse a handshake.
func IsAuthFailure(err error) bool {
	return stderrors.Is(err, ErrInvalidToken) ||
		stderrors.Is(err, ErrExpiredToken) ||
		stderrors.Is(err, ErrUnknownPrincipal)
}

// IsClientError reports whether err is caused by the client and should be
// logged at warn level rather than error.
func IsClientError(err error) bool {
	return Code(err) != CodeInternal
}
