package auth

import (
	"collab-gateway/domain"
	"collab-gateway/errors"
	"collab-gateway/mocks"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuthenticator_Authenticate(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	clk := newMockClock()
	issuer := NewTokenIssuer([]byte("secret"), "collab-gateway", clk)

	t.Run("should resolve the principal of a valid token", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockPrincipalStore(ctrl)
		authenticator := NewAuthenticator(log, issuer, store, 0, 0)

		token, err := issuer.GenerateToken(alice, time.Hour)
		req.NoError(err)
		store.EXPECT().LookupPrincipal(gomock.Any(), alice.ID).Return(alice, nil).Times(1)

		principal, err := authenticator.Authenticate(context.Background(), "Bearer "+token)
		req.NoError(err)
		req.Equal(alice, principal)
	})

	t.Run("should refuse an expired token without touching the store", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockPrincipalStore(ctrl)
		expiredIssuer := NewTokenIssuer([]byte("secret"), "collab-gateway", newMockClock())
		authenticator := NewAuthenticator(log, expiredIssuer, store, 0, 0)

		token, err := issuer.GenerateToken(alice, -time.Minute)
		req.NoError(err)
		store.EXPECT().LookupPrincipal(gomock.Any(), gomock.Any()).Times(0)

		_, err = authenticator.Authenticate(context.Background(), token)
		req.ErrorIs(err, errors.ErrExpiredToken)
		req.True(errors.IsAuthFailure(err))
	})

	t.Run("should refuse an empty credential", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		authenticator := NewAuthenticator(log, issuer, mocks.NewMockPrincipalStore(ctrl), 0, 0)

		_, err := authenticator.Authenticate(context.Background(), "Bearer ")
		req.ErrorIs(err, errors.ErrInvalidToken)
	})

	t.Run("should refuse a soft-deleted principal", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockPrincipalStore(ctrl)
		authenticator := NewAuthenticator(log, issuer, store, 0, 0)

		token, err := issuer.GenerateToken(alice, time.Hour)
		req.NoError(err)
		store.EXPECT().LookupPrincipal(gomock.Any(), alice.ID).Return(domain.Principal{}, errors.ErrUnknownPrincipal)

		_, err = authenticator.Authenticate(context.Background(), token)
		req.ErrorIs(err, errors.ErrUnknownPrincipal)
	})

	t.Run("should report a store failure as unavailable", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockPrincipalStore(ctrl)
		authenticator := NewAuthenticator(log, issuer, store, 0, 0)

		token, err := issuer.GenerateToken(alice, time.Hour)
		req.NoError(err)
		store.EXPECT().LookupPrincipal(gomock.Any(), alice.ID).Return(domain.Principal{}, fmt.Errorf("disk failure"))

		_, err = authenticator.Authenticate(context.Background(), token)
		req.ErrorIs(err, errors.ErrStoreUnavailable)
		req.False(errors.IsAuthFailure(err))
	})

	t.Run("should refuse a principal deleted after a first handshake", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockPrincipalStore(ctrl)
		// Default cache settings: sized, but no TTL
		authenticator := NewAuthenticator(log, issuer, store, 4096, 0)

		token, err := issuer.GenerateToken(alice, time.Hour)
		req.NoError(err)
		gomock.InOrder(
			store.EXPECT().LookupPrincipal(gomock.Any(), alice.ID).Return(alice, nil),
			store.EXPECT().LookupPrincipal(gomock.Any(), alice.ID).Return(domain.Principal{}, errors.ErrUnknownPrincipal),
		)

		principal, err := authenticator.Authenticate(context.Background(), token)
		req.NoError(err)
		req.Equal(alice, principal)

		// When alice is soft-deleted, her still valid token is refused
		_, err = authenticator.Authenticate(context.Background(), token)
		req.ErrorIs(err, errors.ErrUnknownPrincipal)
	})

	t.Run("should cache principals", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockPrincipalStore(ctrl)
		authenticator := NewAuthenticator(log, issuer, store, 16, time.Minute)

		token, err := issuer.GenerateToken(alice, time.Hour)
		req.NoError(err)
		store.EXPECT().LookupPrincipal(gomock.Any(), alice.ID).Return(alice, nil).Times(1)

		for i := 0; i < 3; i++ {
			principal, err := authenticator.Authenticate(context.Background(), token)
			req.NoError(err)
			req.Equal(alice, principal)
		}
	})
}
