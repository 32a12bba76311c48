package fetch

// Kind classifies a Result.
type Kind string

const (
	KindSuccess        Kind = "success"
	KindHTTPError      Kind = "http_error"
	KindTransportError Kind = "transport_error"
)

// Result is the outcome of one request in a batch.
type Result struct {
	URL        string
	Kind       Kind
	StatusCode int    // zero for transport errors
	Body       string // empty for transport errors
	Err        error  // transport failure, or a body read failure on an HTTP error
}

// OK reports whether the request returned 200.
func (r Result) OK() bool {
	return r.Kind == KindSuccess
}

func transportError(url string, err error) Result {
	return Result{URL: url, Kind: KindTransportError, Err: err}
}
