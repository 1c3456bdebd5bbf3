package mqtt

import "strings"

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "warehouse/desktop"

// Topics builds the per-instance topic names.
type Topics struct {
	Prefix   string
	Instance string
}

func (t Topics) base() string {
	prefix := strings.TrimSuffix(t.Prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "/" + sanitizeSegment(t.Instance)
}

// Status returns the online/offline topic.
//
// Example: warehouse/desktop/till-3/status
func (t Topics) Status() string {
	return t.base() + "/status"
}

// State returns the lifecycle transition topic.
//
// Example: warehouse/desktop/till-3/state
func (t Topics) State() string {
	return t.base() + "/state"
}

// sanitizeSegment strips characters that would break out of one topic level.
func sanitizeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', 0:
			return '_'
		}
		return r
	}, s)
	if s == "" {
		return "local"
	}
	return s
}
