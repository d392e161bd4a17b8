package fabric

import (
	"collab-gateway/domain"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope field numbers on the wire.
const (
	fieldRoomID           protowire.Number = 1
	fieldEventType        protowire.Number = 2
	fieldPayload          protowire.Number = 3
	fieldExcludePrincipal protowire.Number = 4
	fieldOrigin           protowire.Number = 5
	fieldTargetPrincipal  protowire.Number = 6
	fieldPublishedAt      protowire.Number = 7
)

// Marshal encodes an envelope in protobuf wire format.
// Empty fields are omitted.
func Marshal(e domain.BroadcastEnvelope) []byte {
	b := make([]byte, 0, 64+len(e.Payload))
	b = appendString(b, fieldRoomID, string(e.RoomID))
	b = appendString(b, fieldEventType, e.EventType)
	if len(e.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Payload)
	}
	b = appendString(b, fieldExcludePrincipal, string(e.ExcludePrincipal))
	b = appendString(b, fieldOrigin, e.Origin)
	b = appendString(b, fieldTargetPrincipal, string(e.TargetPrincipal))
	if !e.PublishedAt.IsZero() {
		b = protowire.AppendTag(b, fieldPublishedAt, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.PublishedAt.UnixMilli()))
	}
	return b
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// Unmarshal decodes an envelope. Unknown fields are skipped so newer
// processes can add fields without breaking older ones.
func Unmarshal(b []byte) (domain.BroadcastEnvelope, error) {
	var e domain.BroadcastEnvelope
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return domain.BroadcastEnvelope{}, fmt.Errorf("envelope tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && num >= fieldRoomID && num <= fieldTargetPrincipal:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return domain.BroadcastEnvelope{}, fmt.Errorf("envelope field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldRoomID:
				e.RoomID = domain.RoomID(v)
			case fieldEventType:
				e.EventType = string(v)
			case fieldPayload:
				e.Payload = append([]byte(nil), v...)
			case fieldExcludePrincipal:
				e.ExcludePrincipal = domain.PrincipalID(v)
			case fieldOrigin:
				e.Origin = string(v)
			case fieldTargetPrincipal:
				e.TargetPrincipal = domain.PrincipalID(v)
			}
		case typ == protowire.VarintType && num == fieldPublishedAt:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return domain.BroadcastEnvelope{}, fmt.Errorf("envelope field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			e.PublishedAt = time.UnixMilli(int64(v))
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return domain.BroadcastEnvelope{}, fmt.Errorf("envelope field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if e.EventType == "" {
		return domain.BroadcastEnvelope{}, fmt.Errorf("envelope without event type")
	}
	return e, nil
}
