package httpclient

import (
	"errors"
	"net"
	"net/http"
)

// Transport is the orchestrator's one collaborator boundary: unlike
// http.RoundTripper, RoundTrip takes the attempt's own Signal, so a
// hedge race or a retry give-up can cancel one in-flight attempt
// without canceling its siblings or the call as a whole.
type Transport interface {
	RoundTrip(req *Request, sig Signal) (*Response, error)
}

// roundTripperTransport adapts any http.RoundTripper (the teacher's
// otelTransport chain included) into a Transport, so the leaf of the
// orchestrator's pipeline stays exactly as pluggable as the teacher's
// http.Client.Transport field always was.
type roundTripperTransport struct {
	rt http.RoundTripper
}

// newRoundTripperTransport wraps rt as a Transport.
func newRoundTripperTransport(rt http.RoundTripper) Transport {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &roundTripperTransport{rt: rt}
}

// RoundTrip converts req to an *http.Request bound to sig, executes it,
// and classifies any transport-level failure into KindAbort (when sig
// fired), KindTimeout, or KindNetwork before it reaches the retry
// classifier.
func (t *roundTripperTransport) RoundTrip(req *Request, sig Signal) (*Response, error) {
	httpReq, err := req.toHTTPRequestWithSignal(sig)
	if err != nil {
		return nil, newError(KindNetwork, httpReq, nil, req.Tags, 0, err)
	}

	httpResp, err := t.rt.RoundTrip(httpReq)
	if err != nil {
		if sig.Fired() && sig.Reason() != ReasonNone {
			return nil, newError(KindAbort, httpReq, nil, req.Tags, 0, sig.Err())
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, newError(KindTimeout, httpReq, nil, req.Tags, 0, err)
		}
		return nil, newError(KindNetwork, httpReq, nil, req.Tags, 0, err)
	}

	return &Response{Response: httpResp, request: httpReq}, nil
}
