package relay

// Request describes one downstream call, independent of wire protocol.
// Cancellation travels on the context.Context passed alongside it.
//
// Requests are treated as structurally immutable: a policy that needs to
// alter one produces a modified copy via [Request.Clone] rather than
// mutating the caller's value.
type Request struct {
	// Method is the operation verb (e.g. "GET" for HTTP, "RETR" for FTP).
	Method string
	// URL is the target resource locator.
	URL string
	// Header holds protocol headers, case-insensitively.
	Header Header
	// Body is the opaque request payload; the transport decides how to
	// serialize it.
	Body any
	// Meta carries protocol-adapter-specific data that the core pipeline
	// passes through untouched.
	Meta map[string]any
}

// NewRequest builds a Request with an initialized header map.
func NewRequest(method, url string) *Request {
	return &Request{
		Method: method,
		URL:    url,
		Header: make(Header),
	}
}

// Clone returns a copy of r with its own header and meta maps. Body is
// shared; it is opaque to the pipeline and never mutated by built-in
// policies.
func (r *Request) Clone() *Request {
	cloned := *r
	cloned.Header = r.Header.Clone()

	if r.Meta != nil {
		cloned.Meta = make(map[string]any, len(r.Meta))
		for k, v := range r.Meta {
			cloned.Meta[k] = v
		}
	}

	return &cloned
}
