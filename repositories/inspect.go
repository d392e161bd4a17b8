package repositories

import (
	"fmt"
	"strings"
	"time"
)

// Describe decodes a raw record for the debug inspector.
// Unknown or undecodable values are reported by size.
func Describe(key string, val []byte) (kind string, detail string) {
	prefix, _, _ := strings.Cut(key, ":")
	switch prefix {
	case "user":
		var r diskUser
		if unmarshal(val, &r) != nil {
			break
		}
		detail = fmt.Sprintf("%s <%s>", r.DisplayName, r.Email)
		if r.DeletedAt != nil {
			detail += " deleted " + time.Unix(0, *r.DeletedAt).UTC().Format(time.RFC3339)
		}
		return "USER", detail
	case "room":
		var r diskRoom
		if unmarshal(val, &r) != nil {
			break
		}
		return "ROOM", fmt.Sprintf("%s owned by %s (%s, open role %q)", r.Title, r.OwnerID, r.Visibility, r.OpenRole)
	case "participant":
		var r diskParticipant
		if unmarshal(val, &r) != nil {
			break
		}
		return "PARTICIPANT", fmt.Sprintf("%s as %s, %s", r.PrincipalID, r.Role, r.Status)
	case "msg":
		var r diskMessage
		if unmarshal(val, &r) != nil {
			break
		}
		return "MESSAGE", fmt.Sprintf("%s: %s", r.AuthorName, r.Content)
	case "msgid":
		return "INDEX", string(val)
	case "ratelimit":
		var r diskQuotaWindow
		if unmarshal(val, &r) != nil {
			break
		}
		start := time.UnixMilli(r.WindowStartEpochMs).UTC()
		return "QUOTA", fmt.Sprintf("%d since %s for %s", r.Count, start.Format(time.TimeOnly), time.Duration(r.WindowMs)*time.Millisecond)
	}
	return "RAW", fmt.Sprintf("Size: %d bytes", len(val))
}
