package gateway

import (
	"collab-gateway/domain"
	"collab-gateway/domain/event"
	"collab-gateway/errors"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestServer_HandshakeRefused(t *testing.T) {
	c := newCluster(t)
	p := c.process()
	c.user("alice")
	c.user("gone")
	require.NoError(t, c.users.SoftDelete("gone", time.Now()))

	expired, err := c.tokens.GenerateToken(domain.Principal{ID: "alice"}, -time.Minute)
	require.NoError(t, err)
	unknown, err := c.tokens.GenerateToken(domain.Principal{ID: "nobody"}, time.Hour)
	require.NoError(t, err)
	deleted, err := c.tokens.GenerateToken(domain.Principal{ID: "gone"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		code  string
	}{
		{"missing token", "", errors.CodeInvalidToken},
		{"garbage token", "not-a-jwt", errors.CodeInvalidToken},
		{"expired token", expired, errors.CodeExpiredToken},
		{"unknown principal", unknown, errors.CodeUnknownPrincipal},
		{"soft deleted principal", deleted, errors.CodeUnknownPrincipal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			// When the handshake is attempted
			ws, resp, err := p.dial(tt.token)

			// Then it is refused before any upgrade
			req.ErrorIs(err, websocket.ErrBadHandshake)
			req.Nil(ws)
			req.Equal(http.StatusUnauthorized, resp.StatusCode)
			var body event.ErrorPayload
			req.NoError(json.NewDecoder(resp.Body).Decode(&body))
			req.Equal(tt.code, body.Code)
			req.Positive(testutil.ToFloat64(p.metrics.HandshakeFailures.WithLabelValues(tt.code)))
		})
	}

	// And no connection was ever registered
	require.Zero(t, testutil.ToFloat64(p.metrics.Connections))
	require.Empty(t, p.registry.ConnectionsOf("alice"))
}

func TestServer_PrincipalDeletedBetweenHandshakes(t *testing.T) {
	req := require.New(t)
	c := newCluster(t)
	p := c.process()
	token := c.user("alice")

	// Given alice connected once
	first, _, err := p.dial(token)
	req.NoError(err)
	_ = first.Close()

	// When she is soft-deleted
	req.NoError(c.users.SoftDelete("alice", time.Now()))

	// Then her still valid token no longer opens a connection
	ws, resp, err := p.dial(token)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Nil(ws)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	var body event.ErrorPayload
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.Equal(errors.CodeUnknownPrincipal, body.Code)
}

func TestServer_TokenQueryParameter(t *testing.T) {
	req := require.New(t)
	c := newCluster(t)
	p := c.process()
	token := c.user("alice")
	c.room("doc", "alice", domain.VisibilityPrivate, "")

	// Given a client that cannot set headers
	url := "ws" + p.url[len("http"):] + "/ws?token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	req.NoError(err)
	defer ws.Close()

	// When it joins a room
	req.NoError(ws.WriteJSON(map[string]any{"type": event.KindJoinRoom, "payload": event.JoinRoom{RoomID: "doc"}}))

	// Then it is acknowledged as the owner
	var out event.Outbound
	req.NoError(ws.ReadJSON(&out))
	req.Equal(event.TypeRoomJoined, out.Type)
	req.Equal(domain.RoleOwner, decode[event.RoomJoinedPayload](t, out).Role)
}

func TestServer_JoinAndMemberJoined(t *testing.T) {
	req := require.New(t)
	c := newCluster(t)
	p := c.process()
	alice := p.connect(t, c.user("alice"))
	bob := p.connect(t, c.user("bob"))
	c.room("doc", "alice", domain.VisibilityOpen, domain.RoleEditor)

	// Given alice already in the room
	ack := alice.join("doc")
	req.Equal(domain.RoleOwner, ack.Role)
	req.Len(ack.Members, 1)

	// When bob joins
	ack = bob.join("doc")

	// Then bob sees both members and alice is told about bob
	req.Equal(domain.RoleEditor, ack.Role)
	req.ElementsMatch([]domain.PrincipalID{"alice", "bob"}, []domain.PrincipalID{ack.Members[0].PrincipalID, ack.Members[1].PrincipalID})
	joined := decode[event.MemberPayload](t, alice.next(event.TypeMemberJoined))
	req.Equal(domain.PrincipalID("bob"), joined.PrincipalID)
	req.Equal("BOB", joined.DisplayName)
	bob.none(event.TypeMemberJoined, 200*time.Millisecond)

	participant, err := c.store.Participant("doc", "bob")
	req.NoError(err)
	req.Equal(domain.ParticipantActive, participant.Status)
}

func TestServer_SelfExclusion(t *testing.T) {
	req := require.New(t)
	c := newCluster(t)
	p := c.process()
	aliceToken := c.user("alice")
	laptop := p.connect(t, aliceToken)
	tablet := p.connect(t, aliceToken)
	bob := p.connect(t, c.user("bob"))
	c.room("doc", "alice", domain.VisibilityOpen, domain.RoleEditor)
	laptop.join("doc")
	tablet.join("doc")
	bob.join("doc")

	// When alice moves her cursor from her laptop
	laptop.send(event.KindUpdateCursor, event.UpdateCursor{RoomID: "doc", Line: 4, Column: 2})

	// Then only the other principal sees it
	cursor := decode[event.CursorPayload](t, bob.next(event.TypeCursorMoved))
	req.Equal(domain.PrincipalID("alice"), cursor.PrincipalID)
	req.Equal(4, cursor.Line)
	laptop.none(event.TypeCursorMoved, 200*time.Millisecond)
	tablet.none(event.TypeCursorMoved, 50*time.Millisecond)

	// When alice sends a chat message
	laptop.send(event.KindSendChat, event.SendChat{RoomID: "doc", Content: "the badger is in the room"})

	// Then every connection gets it, her own included, censored
	for _, client := range []*testClient{laptop, tablet, bob} {
		chat := decode[event.ChatPayload](t, client.next(event.TypeChatNew))
		req.Equal("the ****** is in the room", chat.Content)
		req.Equal(domain.PrincipalID("alice"), chat.AuthorID)
	}
}

func TestServer_QuotaExceededOnlyNotifiesSender(t *testing.T) {
	req := require.New(t)
	c := newCluster(t)
	p := c.process(domain.Limit{Class: domain.LimitChat, Max: 2, Window: time.Minute})
	alice := p.connect(t, c.user("alice"))
	bob := p.connect(t, c.user("bob"))
	c.room("doc", "alice", domain.VisibilityOpen, domain.RoleEditor)
	alice.join("doc")
	bob.join("doc")

	// When alice sends one message more than her budget
	for i := 0; i < 3; i++ {
		alice.send(event.KindSendChat, event.SendChat{RoomID: "doc", Content: "hello"})
	}

	// Then she alone is told why the last one was refused
	failure := decode[event.ErrorPayload](t, alice.next(event.TypeError))
	req.Equal(errors.CodeQuotaExceeded, failure.Code)
	bob.next(event.TypeChatNew)
	bob.next(event.TypeChatNew)
	bob.none(event.TypeChatNew, 300*time.Millisecond)
	bob.none(event.TypeError, 50*time.Millisecond)

	// And the connection stays usable for exempt events
	alice.send(event.KindStartTyping, event.StartTyping{RoomID: "doc"})
	bob.next(event.TypeUserTyping)
}

func TestServer_LeaveOnDisconnect(t *testing.T) {
	req := require.New(t)
	c := newCluster(t)
	p := c.process()
	alice := p.connect(t, c.user("alice"))
	bob := p.connect(t, c.user("bob"))
	c.room("doc", "alice", domain.VisibilityOpen, domain.RoleEditor)
	alice.join("doc")
	bob.join("doc")

	// When bob's transport dies without a close frame
	req.NoError(bob.ws.UnderlyingConn().Close())

	// Then alice is told bob left and nothing remains of bob
	left := decode[event.MemberPayload](t, alice.next(event.TypeMemberLeft))
	req.Equal(domain.PrincipalID("bob"), left.PrincipalID)
	req.Eventually(func() bool { return len(p.registry.ConnectionsOf("bob")) == 0 }, 2*time.Second, 10*time.Millisecond)
	req.Len(p.registry.Members("doc"), 1)
	req.Eventually(func() bool {
		participant, err := c.store.Participant("doc", "bob")
		return err == nil && participant.Status == domain.ParticipantDeparted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_AccessDeniedKeepsConnectionOpen(t *testing.T) {
	req := require.New(t)
	c := newCluster(t)
	p := c.process()
	c.user("alice")
	mallory := p.connect(t, c.user("mallory"))
	c.room("secret", "alice", domain.VisibilityPrivate, "")
	c.room("lobby", "alice", domain.VisibilityOpen, domain.RoleViewer)

	// When mallory tries a private room
	mallory.send(event.KindJoinRoom, event.JoinRoom{RoomID: "secret"})

	// Then the join is refused without closing the connection
	req.Equal(errors.CodeAccessDenied, decode[event.ErrorPayload](t, mallory.next(event.TypeError)).Code)
	req.Empty(p.registry.Members("secret"))

	// When mallory targets a room she is not in
	mallory.send(event.KindSendChat, event.SendChat{RoomID: "secret", Content: "hi"})
	req.Equal(errors.CodeNotInRoom, decode[event.ErrorPayload](t, mallory.next(event.TypeError)).Code)

	// Then an allowed join still works
	req.Equal(domain.RoleViewer, mallory.join("lobby").Role)
}

func TestServer_ViewerCannotMoveCursor(t *testing.T) {
	req := require.New(t)
	c := newCluster(t)
	p := c.process()
	alice := p.connect(t, c.user("alice"))
	victor := p.connect(t, c.user("victor"))
	c.room("doc", "alice", domain.VisibilityPrivate, "")
	req.NoError(c.store.AddParticipant("doc", "victor", domain.RoleViewer, time.Now()))
	alice.join("doc")
	req.Equal(domain.RoleViewer, victor.join("doc").Role)

	// When the viewer moves a cursor
	victor.send(event.KindUpdateCursor, event.UpdateCursor{RoomID: "doc", Line: 1})

	// Then it is refused and nobody sees it
	req.Equal(errors.CodeAccessDenied, decode[event.ErrorPayload](t, victor.next(event.TypeError)).Code)
	alice.none(event.TypeCursorMoved, 200*time.Millisecond)

	// And the viewer can still chat
	victor.send(event.KindSendChat, event.SendChat{RoomID: "doc", Content: "looks good"})
	req.Equal("looks good", decode[event.ChatPayload](t, alice.next(event.TypeChatNew)).Content)
}

func TestServer_MalformedEventsCloseConnection(t *testing.T) {
	req := require.New(t)
	c := newCluster(t)
	p := c.process()
	alice := p.connect(t, c.user("alice"))

	// When a valid but unknown event arrives, then garbage
	req.NoError(alice.ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"unknown.kind","payload":{}}`)))
	req.Equal(errors.CodeMalformedEvent, decode[event.ErrorPayload](t, alice.next(event.TypeError)).Code)
	req.NoError(alice.ws.WriteMessage(websocket.TextMessage, []byte(`{{{`)))
	req.NoError(alice.ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"room.join","payload":{"roomId":""}}`)))

	// Then the third consecutive one closes the connection with a policy violation
	select {
	case <-alice.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("connection not closed")
	}
	req.True(websocket.IsCloseError(alice.err, websocket.ClosePolicyViolation), "got %v", alice.err)
	req.Equal(float64(3), testutil.ToFloat64(p.metrics.MalformedEvents))
	req.Eventually(func() bool { return len(p.registry.ConnectionsOf("alice")) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_ShutdownClosesConnections(t *testing.T) {
	req := require.New(t)
	c := newCluster(t)
	p := c.process()
	token := c.user("alice")
	alice := p.connect(t, token)
	c.room("doc", "alice", domain.VisibilityOpen, domain.RoleEditor)
	alice.join("doc")

	// When the process drains
	req.NoError(p.server.Shutdown(t.Context()))

	// Then the client is told to go away and new handshakes are refused
	<-alice.closed
	req.True(websocket.IsCloseError(alice.err, websocket.CloseGoingAway), "got %v", alice.err)
	req.True(p.server.Draining())
	req.Empty(p.registry.Members("doc"))
	_, resp, err := p.dial(token)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusServiceUnavailable, resp.StatusCode)
}
