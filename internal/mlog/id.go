package mlog

import (
	"strings"

	"github.com/google/uuid"
)

// FormatID formats an orchestration instance ID or an entity ID for display.
//
// UUIDs are abbreviated to their first 8 characters. For entity IDs, in the
// "@name@key" form, only the key is abbreviated.
func FormatID(id string) string {
	if strings.HasPrefix(id, "@") {
		if i := strings.IndexByte(id[1:], '@'); i >= 0 {
			n := i + 2
			return id[:n] + abbreviate(id[n:])
		}
	}

	return abbreviate(id)
}

func abbreviate(id string) string {
	if len(id) != 36 {
		return id
	}

	if _, err := uuid.Parse(id); err != nil {
		return id
	}

	return id[:8]
}
