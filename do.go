package relay

import "context"

// Do executes a single request through an anonymous pipeline built from
// opts around transport. The pipeline is not registered with any
// [Registry]. For repeated calls, build the pipeline once with
// [NewPipeline] instead.
func Do(ctx context.Context, req *Request, transport Handler, opts ...any) (*Response, error) {
	p := NewPipeline("", transport, opts...)

	return p.Do(ctx, req)
}
