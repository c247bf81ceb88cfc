package httpclient

import (
	"math/rand/v2"
	"time"
)

// hedgeResult carries one racer's outcome back to the collector.
type hedgeResult struct {
	index int
	resp  *Response
	err   error
}

// runHedged races ctx.Req's primary attempt against up to
// HedgePolicy.MaxHedges additional racers fired at increasing delays,
// generalizing the teacher's hedge_transport.go (a bare unconditional
// race with no wait-for-all-errors guarantee) into spec.md §4.5's full
// contract: the first *successful* result wins immediately, but if
// every racer errors, the caller sees the primary's error rather than
// whichever racer happened to fail fastest.
func runHedged(transport Transport, ctx *Context, bus *Bus) (*Response, error) {
	policy := ctx.Req.HedgePolicy
	racers := policy.MaxHedges + 1

	results := make(chan hedgeResult, racers)
	racerSignal, cancelAll := Compose(ReasonHedgeLoser, ctx.Controller.Signal())

	launch := func(i int) {
		req := ctx.Req
		if len(policy.Servers) > 0 {
			req = rotateServer(ctx.Req, policy.Servers, i)
		}
		resp, err := transport.RoundTrip(req, racerSignal)
		results <- hedgeResult{index: i, resp: resp, err: err}
	}

	go launch(0)
	launched := 1

	delay := policy.Delay
loop:
	for i := 1; i < racers; i++ {
		select {
		case <-time.After(jitterDelay(delay, policy.JitterFactor)):
			if bus != nil {
				bus.Emit(StatsEvent{Kind: EventHedgeLaunch, Method: ctx.Req.Method, Endpoint: ctx.Req.URL.String(), HedgeIndex: i})
			}
			go launch(i)
			launched++
			if policy.Multiplier > 0 {
				delay = time.Duration(float64(delay) * policy.Multiplier)
			}
		case <-racerSignal.Done():
			// The call was canceled before this racer's delay elapsed;
			// stop launching more and collect whatever already ran.
			break loop
		}
	}

	return collect(results, launched, bus, ctx, cancelAll)
}

// collect waits for either the first success or all launched racers to
// error, draining stragglers into the background so a winner doesn't
// block on its siblings.
func collect(results chan hedgeResult, launched int, bus *Bus, ctx *Context, cancelAll func()) (*Response, error) {
	var firstErr error
	received := 0

	for received < launched {
		r := <-results
		received++
		if r.err == nil {
			if policy := ctx.Req.HedgePolicy; policy.Mode == HedgeCancelAndRetry {
				cancelAll()
			}
			if bus != nil {
				bus.Emit(StatsEvent{Kind: EventHedgeWin, Method: ctx.Req.Method, Endpoint: ctx.Req.URL.String(), HedgeIndex: r.index})
			}
			go drainStragglers(results, launched-received, cancelAll)
			return r.resp, nil
		}
		if firstErr == nil || r.index == 0 {
			firstErr = r.err
		}
	}
	cancelAll()
	return nil, firstErr
}

func drainStragglers(results chan hedgeResult, remaining int, cancelAll func()) {
	cancelAll()
	for i := 0; i < remaining; i++ {
		<-results
	}
}

// jitterDelay applies +/- jitterFactor randomization to d.
func jitterDelay(d time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return d
	}
	delta := float64(d) * jitterFactor
	return d + time.Duration((rand.Float64()*2-1)*delta)
}

// rotateServer rewrites req's host to servers[i%len(servers)], for a
// hedge executor configured to race against alternate upstream
// instances instead of re-requesting the same one — grounded in the
// wudi-gateway hedging executor's nextBackend rotation pattern.
func rotateServer(req *Request, servers []string, i int) *Request {
	out := req.clone()
	server := servers[i%len(servers)]
	u := *out.URL
	u.Scheme, u.Host = splitServer(server)
	out.URL = &u
	return out
}

func splitServer(server string) (scheme, host string) {
	for idx := 0; idx+2 < len(server); idx++ {
		if server[idx:idx+3] == "://" {
			return server[:idx], server[idx+3:]
		}
	}
	return "http", server
}
