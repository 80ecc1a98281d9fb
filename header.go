package relay

import "strings"

// Header is a case-insensitive header map. Keys are folded to lower case on
// every access, so "Cache-Control", "cache-control" and "CACHE-CONTROL"
// address the same entry regardless of how the transport spells them.
type Header map[string]string

// Get returns the value for key, or "" if the key is absent.
func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}

	return h[strings.ToLower(key)]
}

// Has reports whether key is present.
func (h Header) Has(key string) bool {
	if h == nil {
		return false
	}

	_, ok := h[strings.ToLower(key)]

	return ok
}

// Set stores value under key, replacing any existing value.
func (h Header) Set(key, value string) {
	h[strings.ToLower(key)] = value
}

// Del removes key.
func (h Header) Del(key string) {
	delete(h, strings.ToLower(key))
}

// Clone returns a deep copy of h. Cloning a nil Header returns an empty,
// usable Header so callers can Set on the result unconditionally.
func (h Header) Clone() Header {
	cloned := make(Header, len(h))
	for k, v := range h {
		cloned[k] = v
	}

	return cloned
}
