package httpclient

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// RequestBuilder provides a fluent API for constructing HTTP requests.
//
// Create a RequestBuilder using Client.Request():
//
//	resp, err := client.Request("CreateUser").
//	    Path("/users").
//	    Body(user).
//	    Post(ctx)
type RequestBuilder struct {
	client              *Client
	operationName       string
	path                string
	pathParams          map[string]string
	queryParams         url.Values
	headers             http.Header
	body                io.Reader
	contentType         string
	result              any
	errorResult         any
	enableTrace         bool
	hedgeConfig         *HedgeConfig
	adaptiveHedgeConfig *AdaptiveHedgeConfig

	// Multipart upload fields
	fileUploads []FileUpload
	formFields  map[string]string

	// Orchestrator policy overrides for this call; nil means "use the
	// client's default" (see internalConfig.RetryPolicy and friends).
	retryPolicy     *RetryPolicy
	dedupPolicy     *DedupPolicy
	debouncePolicy  *DebouncePolicy
	rateLimitPolicy *RateLimitPolicy
	tags            []string
	responseHint    ResponseTypeHint
	timeout         Timeout
}

// Path sets the request path.
//
// The path is appended to the client's base URL. Path parameters
// can be specified using {name} syntax and filled with PathParam().
//
// Example:
//
//	client.Request("GetUser").
//	    Path("/users/{id}").
//	    PathParam("id", userID).
//	    Get(ctx)
func (rb *RequestBuilder) Path(path string) *RequestBuilder {
	rb.path = path
	return rb
}

// PathParam sets a path parameter value.
//
// Path parameters are replaced in the path string using {name} syntax.
//
// Example:
//
//	client.Request("GetUser").
//	    Path("/users/{id}/posts/{postId}").
//	    PathParam("id", userID).
//	    PathParam("postId", postID).
//	    Get(ctx)
func (rb *RequestBuilder) PathParam(key, value string) *RequestBuilder {
	rb.pathParams[key] = value
	return rb
}

// Query adds a single query parameter.
//
// Example:
//
//	client.Request("SearchUsers").
//	    Path("/users").
//	    Query("search", "john").
//	    Query("limit", "10").
//	    Get(ctx)
func (rb *RequestBuilder) Query(key, value string) *RequestBuilder {
	if rb.queryParams == nil {
		rb.queryParams = make(url.Values)
	}
	rb.queryParams.Set(key, value)
	return rb
}

// Queries adds multiple query parameters.
//
// Example:
//
//	client.Request("SearchUsers").
//	    Path("/users").
//	    Queries(map[string]string{"search": "john", "limit": "10"}).
//	    Get(ctx)
func (rb *RequestBuilder) Queries(params map[string]string) *RequestBuilder {
	if rb.queryParams == nil {
		rb.queryParams = make(url.Values)
	}
	for k, v := range params {
		rb.queryParams.Set(k, v)
	}
	return rb
}

// Header sets a single request header.
//
// Example:
//
//	client.Request("CreateUser").
//	    Header("Authorization", "Bearer "+token).
//	    Header("Idempotency-Key", key).
//	    Post(ctx, "/users")
func (rb *RequestBuilder) Header(key, value string) *RequestBuilder {
	rb.headers.Set(key, value)
	return rb
}

// Headers sets multiple request headers.
//
// Example:
//
//	client.Request("CreateUser").
//	    Headers(map[string]string{
//	        "Authorization": "Bearer "+token,
//	        "Idempotency-Key": key,
//	    }).
//	    Post(ctx, "/users")
func (rb *RequestBuilder) Headers(headers map[string]string) *RequestBuilder {
	for k, v := range headers {
		rb.headers.Set(k, v)
	}
	return rb
}

// Body sets the request body with automatic content type detection.
//
// The content type is automatically determined based on the input type:
//   - struct/map: Encoded as JSON (Content-Type: application/json)
//   - string: Sent as plain text (Content-Type: text/plain; charset=utf-8)
//   - []byte: Sent as binary data (Content-Type: application/octet-stream)
//   - io.Reader: Passed through directly (no Content-Type set)
//   - url.Values: Encoded as form data (Content-Type: application/x-www-form-urlencoded)
//
// For explicit encoding control, use the dedicated methods:
//   - BodyJSON() - Force JSON encoding
//   - BodyXML() - Force XML encoding
//   - BodyForm() - Force form encoding
//
// Example with struct (auto-detected as JSON):
//
//	type User struct {
//	    Name  string `json:"name"`
//	    Email string `json:"email"`
//	}
//
//	var user User
//	resp, err := client.Request("CreateUser").
//	    Body(user).
//	    Post(ctx, "/users")
//
// Example with string:
//
//	resp, err := client.Request("SendMessage").
//	    Body("Hello, World!").
//	    Post(ctx, "/messages")
//
// Example with url.Values (form encoded):
//
//	form := url.Values{}
//	form.Set("username", "john")
//	form.Set("password", "secret")
//
//	resp, err := client.Request("Login").
//	    Body(form).
//	    Post(ctx, "/login")
func (rb *RequestBuilder) Body(v any) *RequestBuilder {
	if v == nil {
		return rb
	}

	switch body := v.(type) {
	case string:
		rb.body = strings.NewReader(body)
		rb.contentType = "text/plain; charset=utf-8"
	case []byte:
		rb.body = bytes.NewReader(body)
		rb.contentType = "application/octet-stream"
	case io.Reader:
		rb.body = body
	case url.Values:
		rb.body = strings.NewReader(body.Encode())
		rb.contentType = "application/x-www-form-urlencoded"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			rb.body = &bodyEncodingError{err: err}
			return rb
		}
		rb.body = bytes.NewReader(data)
		rb.contentType = "application/json"
	}
	return rb
}

// BodyJSON explicitly encodes the body as JSON.
//
// Use this method when you want to ensure JSON encoding regardless of the input type,
// or when you want to be explicit about the encoding for code clarity.
//
// The Content-Type header is automatically set to "application/json".
//
// Example:
//
//	type CreateUserRequest struct {
//	    Name  string `json:"name"`
//	    Email string `json:"email"`
//	    Age   int    `json:"age"`
//	}
//
//	req := CreateUserRequest{
//	    Name:  "John Doe",
//	    Email: "john@example.com",
//	    Age:   30,
//	}
//
//	resp, err := client.Request("CreateUser").
//	    BodyJSON(req).
//	    Post(ctx, "/api/users")
func (rb *RequestBuilder) BodyJSON(v any) *RequestBuilder {
	if v == nil {
		return rb
	}
	data, err := json.Marshal(v)
	if err != nil {
		rb.body = &bodyEncodingError{err: err}
		return rb
	}
	rb.body = bytes.NewReader(data)
	rb.contentType = "application/json"
	return rb
}

// BodyXML explicitly encodes the body as XML.
//
// Use this method when interfacing with APIs that require XML payloads,
// such as SOAP services or legacy enterprise systems.
//
// The Content-Type header is automatically set to "application/xml".
// Make sure your struct fields have appropriate `xml` tags for proper encoding.
//
// Example:
//
//	type Order struct {
//	    XMLName xml.Name `xml:"order"`
//	    ID      string   `xml:"id"`
//	    Amount  float64  `xml:"amount"`
//	    Items   []Item   `xml:"items>item"`
//	}
//
//	order := Order{
//	    ID:     "ORD-123",
//	    Amount: 99.99,
//	    Items:  []Item{{Name: "Widget", Qty: 2}},
//	}
//
//	resp, err := client.Request("CreateOrder").
//	    BodyXML(order).
//	    Post(ctx, "/api/orders")
func (rb *RequestBuilder) BodyXML(v any) *RequestBuilder {
	if v == nil {
		return rb
	}
	data, err := xml.Marshal(v)
	if err != nil {
		rb.body = &bodyEncodingError{err: err}
		return rb
	}
	rb.body = bytes.NewReader(data)
	rb.contentType = "application/xml"
	return rb
}

// BodyForm sets form data as the request body.
//
// This method encodes the provided key-value pairs as URL-encoded form data,
// commonly used for HTML form submissions and OAuth token requests.
//
// The Content-Type header is automatically set to "application/x-www-form-urlencoded".
//
// Example - Login form:
//
//	resp, err := client.Request("Login").
//	    BodyForm(map[string]string{
//	        "username": "john@example.com",
//	        "password": "secret123",
//	    }).
//	    Post(ctx, "/auth/login")
//
// Example - OAuth token request:
//
//	resp, err := client.Request("GetToken").
//	    BodyForm(map[string]string{
//	        "grant_type":    "client_credentials",
//	        "client_id":     os.Getenv("CLIENT_ID"),
//	        "client_secret": os.Getenv("CLIENT_SECRET"),
//	    }).
//	    Post(ctx, "/oauth/token")
func (rb *RequestBuilder) BodyForm(data map[string]string) *RequestBuilder {
	values := make(url.Values)
	for k, v := range data {
		values.Set(k, v)
	}
	rb.body = strings.NewReader(values.Encode())
	rb.contentType = "application/x-www-form-urlencoded"
	return rb
}

// Decode sets the target for automatic response body decoding.
//
// When a successful response is received (HTTP 2xx status codes),
// the response body is automatically decoded into the provided target.
// The decoding format is determined by the Content-Type header (JSON by default).
//
// If an error response is received (non-2xx), the body is not decoded into this target.
// Use DecodeError() to handle error responses, or DecodeAny() for unified response structures.
//
// Example - Fetching a list of users:
//
//	type User struct {
//	    ID    int    `json:"id"`
//	    Name  string `json:"name"`
//	    Email string `json:"email"`
//	}
//
//	var users []User
//	resp, err := client.Request("GetUsers").
//	    Decode(&users).
//	    Get(ctx, "/api/users")
//	if err != nil {
//	    return err
//	}
//	// users slice is now populated
func (rb *RequestBuilder) Decode(v any) *RequestBuilder {
	rb.result = v
	return rb
}

// DecodeError sets the target for automatic error response decoding.
//
// When an error response is received (non-2xx status codes), the response body
// is automatically decoded into the provided target. This is useful when APIs
// return structured error information.
//
// This method is typically used together with Decode() to handle both success
// and error responses with different structures.
//
// Example - Handling both success and error responses:
//
//	type User struct {
//	    ID   int    `json:"id"`
//	    Name string `json:"name"`
//	}
//
//	type APIError struct {
//	    Code    string `json:"code"`
//	    Message string `json:"message"`
//	    Details []struct {
//	        Field string `json:"field"`
//	        Error string `json:"error"`
//	    } `json:"details,omitempty"`
//	}
//
//	var user User
//	var apiErr APIError
//
//	resp, err := client.Request("GetUser").
//	    Decode(&user).
//	    DecodeError(&apiErr).
//	    Get(ctx, "/api/users/123")
//	if err != nil {
//	    return err
//	}
//	if resp.IsError() {
//	    log.Printf("API error: %s - %s", apiErr.Code, apiErr.Message)
//	}
func (rb *RequestBuilder) DecodeError(v any) *RequestBuilder {
	rb.errorResult = v
	return rb
}

// DecodeAny sets the target for automatic response decoding regardless of status code.
//
// Use this when your API returns the same response structure for both success
// and error responses. The body is always decoded into the target, regardless
// of the HTTP status code.
//
// This is common in APIs that wrap all responses in a consistent envelope structure.
//
// Example - Unified response structure:
//
//	type APIResponse struct {
//	    Success bool            `json:"success"`
//	    Data    json.RawMessage `json:"data,omitempty"`
//	    Error   *struct {
//	        Code    string `json:"code"`
//	        Message string `json:"message"`
//	    } `json:"error,omitempty"`
//	}
//
//	var response APIResponse
//	resp, err := client.Request("GetData").
//	    DecodeAny(&response).
//	    Get(ctx, "/api/data")
//	if err != nil {
//	    return err
//	}
//	if !response.Success {
//	    return fmt.Errorf("API error: %s", response.Error.Message)
//	}
func (rb *RequestBuilder) DecodeAny(v any) *RequestBuilder {
	rb.result = v
	rb.errorResult = v
	return rb
}

// EnableTrace enables timing trace collection for this request.
//
// When enabled, detailed timing information is collected during the request,
// including DNS lookup, connection establishment, TLS handshake, and time to
// first byte. This is useful for debugging performance issues.
//
// Access the collected trace data via Response.TraceInfo().
//
// Example:
//
//	resp, err := client.Request("SlowAPI").
//	    EnableTrace().
//	    Get(ctx, "/api/slow-endpoint")
//	if err != nil {
//	    return err
//	}
//
//	trace := resp.TraceInfo()
//	fmt.Printf("DNS: %v, Connect: %v, TLS: %v, TTFB: %v\n",
//	    trace.DNSLookup, trace.ConnTime, trace.TLSTime, trace.TTFB)
func (rb *RequestBuilder) EnableTrace() *RequestBuilder {
	rb.enableTrace = true
	return rb
}

// Hedge enables hedged requests for this specific request.
//
// Hedged requests reduce tail latency by sending a duplicate request if the
// original hasn't completed within the specified delay. First response wins.
//
// IMPORTANT: Only use for idempotent operations (GET, HEAD, or idempotent POST/PUT).
//
// Example:
//
//	resp, err := client.Request("GetUser").
//	    Hedge(50 * time.Millisecond).  // Send hedge after 50ms
//	    Get(ctx, "/users/123")
//
// For more control, use HedgeConfig().
func (rb *RequestBuilder) Hedge(delay time.Duration) *RequestBuilder {
	rb.hedgeConfig = &HedgeConfig{
		Delay:     delay,
		MaxHedges: 1,
	}
	return rb
}

// HedgeConfig enables hedged requests with full configuration.
//
// This allows fine-grained control over hedging behavior.
//
// Example:
//
//	resp, err := client.Request("GetUser").
//	    HedgeConfig(httpclient.HedgeConfig{
//	        Delay:     50 * time.Millisecond,
//	        MaxHedges: 2,
//	    }).
//	    Get(ctx, "/users/123")
func (rb *RequestBuilder) HedgeConfig(cfg HedgeConfig) *RequestBuilder {
	rb.hedgeConfig = &cfg
	return rb
}

// AdaptiveHedge enables adaptive hedged requests that dynamically calculate
// the hedge delay based on historical endpoint latency.
//
// After sufficient samples are collected (MinSamples), the hedge delay is
// automatically set to the TargetPercentile latency. Until then, FallbackDelay
// is used.
//
// Example - Using defaults (P95, 100 samples, 50ms fallback):
//
//	resp, err := client.Request("GetUser").
//	    AdaptiveHedge(httpclient.DefaultAdaptiveHedgeConfig()).
//	    Get(ctx, "/users/123")
//
// Example - Custom config:
//
//	resp, err := client.Request("GetUser").
//	    AdaptiveHedge(httpclient.AdaptiveHedgeConfig{
//	        TargetPercentile: 0.99,
//	        MinSamples:       20,
//	        FallbackDelay:    100 * time.Millisecond,
//	    }).
//	    Get(ctx, "/users/123")
func (rb *RequestBuilder) AdaptiveHedge(cfg AdaptiveHedgeConfig) *RequestBuilder {
	rb.adaptiveHedgeConfig = &cfg
	return rb
}

// Retry overrides the client's default retry policy for this call.
//
// Example:
//
//	resp, err := client.Request("CreatePayment").
//	    Retry(httpclient.NoRetryPolicy()).
//	    Post(ctx, "/payments")
func (rb *RequestBuilder) Retry(policy RetryPolicy) *RequestBuilder {
	rb.retryPolicy = &policy
	return rb
}

// Dedup overrides the client's default deduplication policy for this call.
func (rb *RequestBuilder) Dedup(policy DedupPolicy) *RequestBuilder {
	rb.dedupPolicy = &policy
	return rb
}

// Coalesce enables request deduplication for this call at its default
// settings (in-flight singleflight coalescing keyed on method+URL, no
// result cache). Equivalent to Dedup with DefaultDedupPolicy, enabled.
func (rb *RequestBuilder) Coalesce() *RequestBuilder {
	policy := DefaultDedupPolicy()
	policy.Enabled = true
	rb.dedupPolicy = &policy
	return rb
}

// Debounce overrides the client's default debounce policy for this call.
func (rb *RequestBuilder) Debounce(policy DebouncePolicy) *RequestBuilder {
	rb.debouncePolicy = &policy
	return rb
}

// RateLimit sets this call's rate limit policy. Only its Enabled field is
// read: it switches admission through the client's limiter (built from the
// client's default RateLimitPolicy) on or off for this call. The policy's
// other fields are not read, and a client whose default policy is not
// enabled has no limiter, so the call is then not limited.
func (rb *RequestBuilder) RateLimit(policy RateLimitPolicy) *RequestBuilder {
	rb.rateLimitPolicy = &policy
	return rb
}

// Tags attaches labels to this call, surfaced on every StatsEvent the
// call emits (rate-limit wait, dedup hit, retry, hedge launch, ...).
func (rb *RequestBuilder) Tags(tags ...string) *RequestBuilder {
	rb.tags = append(rb.tags, tags...)
	return rb
}

// Timeout overrides the client's default overall-call timeout
// (Config.Timeout) for this call. Use NoTimeout() to disable it
// outright, or TimeoutAfter(d) for an explicit deadline.
func (rb *RequestBuilder) Timeout(t Timeout) *RequestBuilder {
	rb.timeout = t
	return rb
}

// Hint tells the facade how to parse the response body into Response.Data,
// independent of any Decode()/DecodeError() target. Most callers reach for
// one of the typed shortcuts (GetJSON, GetText, GetXML, ...) instead of
// setting this directly.
func (rb *RequestBuilder) Hint(h ResponseTypeHint) *RequestBuilder {
	rb.responseHint = h
	return rb
}

// resolveHedgePolicy turns the builder's Hedge/HedgeConfig/AdaptiveHedge
// calls into a concrete HedgePolicy, falling back to the client's
// default when none of them were used for this call.
func (rb *RequestBuilder) resolveHedgePolicy(cfg *internalConfig, endpoint string) HedgePolicy {
	switch {
	case rb.adaptiveHedgeConfig != nil && rb.adaptiveHedgeConfig.Enabled():
		policy := cfg.HedgePolicy
		policy.Enabled = true
		policy.Delay = rb.adaptiveHedgeConfig.GetDelay(endpoint)
		policy.MaxHedges = rb.adaptiveHedgeConfig.MaxHedges
		return policy
	case rb.hedgeConfig != nil && rb.hedgeConfig.Enabled():
		policy := cfg.HedgePolicy
		policy.Enabled = true
		policy.Delay = rb.hedgeConfig.Delay
		policy.MaxHedges = rb.hedgeConfig.MaxHedges
		return policy
	default:
		return cfg.HedgePolicy
	}
}

// Get executes a GET request.
//
// The path parameter is optional if already set via Path(). If provided,
// it overrides any previously set path. The path can include placeholders
// for path parameters set via PathParam().
//
// Example - Simple GET:
//
//	resp, err := client.Request("GetUsers").Get(ctx, "/users")
//
// Example - GET with query parameters:
//
//	resp, err := client.Request("SearchUsers").
//	    Query("name", "john").
//	    Query("limit", "10").
//	    Get(ctx, "/users")
//
// Example - GET with path parameters:
//
//	resp, err := client.Request("GetUser").
//	    PathParam("id", userID).
//	    Get(ctx, "/users/{id}")
func (rb *RequestBuilder) Get(ctx context.Context, path ...string) (*Response, error) {
	if len(path) > 0 {
		rb.path = path[0]
	}
	return rb.execute(ctx, http.MethodGet)
}

// Post executes a POST request.
//
// POST is typically used to create new resources or submit data for processing.
// The request body should be set via Body(), BodyJSON(), BodyXML(), or BodyForm().
//
// Example - Create a resource:
//
//	type CreateUserRequest struct {
//	    Name  string `json:"name"`
//	    Email string `json:"email"`
//	}
//
//	req := CreateUserRequest{Name: "John", Email: "john@example.com"}
//	resp, err := client.Request("CreateUser").
//	    Body(req).
//	    Post(ctx, "/users")
//
// Example - Submit form data:
//
//	resp, err := client.Request("Login").
//	    BodyForm(map[string]string{"username": "john", "password": "secret"}).
//	    Post(ctx, "/auth/login")
func (rb *RequestBuilder) Post(ctx context.Context, path ...string) (*Response, error) {
	if len(path) > 0 {
		rb.path = path[0]
	}
	return rb.execute(ctx, http.MethodPost)
}

// Put executes a PUT request.
//
// PUT is typically used to replace an existing resource entirely.
// The request body should contain the complete updated resource.
//
// Example:
//
//	type User struct {
//	    ID    int    `json:"id"`
//	    Name  string `json:"name"`
//	    Email string `json:"email"`
//	}
//
//	user := User{ID: 123, Name: "John Updated", Email: "john.new@example.com"}
//	resp, err := client.Request("UpdateUser").
//	    PathParam("id", "123").
//	    Body(user).
//	    Put(ctx, "/users/{id}")
func (rb *RequestBuilder) Put(ctx context.Context, path ...string) (*Response, error) {
	if len(path) > 0 {
		rb.path = path[0]
	}
	return rb.execute(ctx, http.MethodPut)
}

// Patch executes a PATCH request.
//
// PATCH is typically used to partially update a resource, sending only the
// fields that need to be changed rather than the entire resource.
//
// Example:
//
//	patch := map[string]any{"name": "Updated Name"}
//	resp, err := client.Request("PatchUser").
//	    PathParam("id", "123").
//	    Body(patch).
//	    Patch(ctx, "/users/{id}")
func (rb *RequestBuilder) Patch(ctx context.Context, path ...string) (*Response, error) {
	if len(path) > 0 {
		rb.path = path[0]
	}
	return rb.execute(ctx, http.MethodPatch)
}

// Delete executes a DELETE request.
//
// DELETE is used to remove a resource. DELETE requests typically don't have
// a request body, though some APIs may accept one for additional parameters.
//
// Example:
//
//	resp, err := client.Request("DeleteUser").
//	    PathParam("id", userID).
//	    Delete(ctx, "/users/{id}")
//	if err != nil {
//	    return err
//	}
//	if resp.StatusCode() == http.StatusNoContent {
//	    log.Println("User deleted successfully")
//	}
func (rb *RequestBuilder) Delete(ctx context.Context, path ...string) (*Response, error) {
	if len(path) > 0 {
		rb.path = path[0]
	}
	return rb.execute(ctx, http.MethodDelete)
}

// execute builds a Request record and runs it through the client's
// orchestrator: debounce, rate limiting, dedup, the plugin pipeline,
// and the retry/hedge loop, all policy-resolved for this one call.
func (rb *RequestBuilder) execute(ctx context.Context, method string) (*Response, error) {
	targetURL, err := rb.buildURL()
	if err != nil {
		return nil, err
	}

	// Check for body encoding errors
	if er, ok := rb.body.(*bodyEncodingError); ok {
		return nil, er.err
	}

	// Handle multipart file uploads
	reqBody := rb.body
	if len(rb.fileUploads) > 0 {
		body, contentType, err := rb.buildMultipart()
		if err != nil {
			return nil, err
		}
		reqBody = body
		rb.contentType = contentType
	}

	var bodyBytes []byte
	if reqBody != nil {
		bodyBytes, err = io.ReadAll(reqBody)
		if err != nil {
			return nil, err
		}
	}

	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	for k, v := range rb.client.defaultHeaders {
		for _, vv := range v {
			header.Add(k, vv)
		}
	}
	for k, v := range rb.headers {
		header[k] = v
	}
	if rb.contentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", rb.contentType)
	}

	endpoint := rb.operationName
	if endpoint == "" {
		endpoint = u.Path
	}

	cfg := rb.client.config

	retryPolicy := cfg.RetryPolicy
	if rb.retryPolicy != nil {
		retryPolicy = *rb.retryPolicy
	}
	dedupPolicy := cfg.DedupPolicy
	if rb.dedupPolicy != nil {
		dedupPolicy = *rb.dedupPolicy
	}
	debouncePolicy := cfg.DebouncePolicy
	if rb.debouncePolicy != nil {
		debouncePolicy = *rb.debouncePolicy
	}
	rateLimitPolicy := cfg.RateLimitPolicy
	if rb.rateLimitPolicy != nil {
		rateLimitPolicy = *rb.rateLimitPolicy
	}

	req := &Request{
		Method:           method,
		URL:              u,
		Header:           header,
		Body:             bodyBytes,
		Timeout:          rb.timeout,
		RetryPolicy:      retryPolicy,
		HedgePolicy:      rb.resolveHedgePolicy(cfg, endpoint),
		DedupPolicy:      dedupPolicy,
		DebouncePolicy:   debouncePolicy,
		RateLimitPolicy:  rateLimitPolicy,
		ResponseTypeHint: rb.responseHint,
		Tags:             rb.tags,
	}

	enableTrace := rb.enableTrace || rb.client.enableTrace
	var tracer *requestTracer
	traceCtx := ctx
	if enableTrace {
		tracer = &requestTracer{totalStart: time.Now()}
		traceCtx = httptrace.WithClientTrace(ctx, tracer.clientTrace())
	}

	derivedCtx, baseCancel := context.WithCancel(traceCtx)
	signal := NewUserSignal(derivedCtx)
	cancel := baseCancel

	timeoutDuration := cfg.httpConfig.Timeout
	if rb.timeout.isSet() {
		timeoutDuration = rb.timeout.value
	}
	if timeoutDuration > 0 {
		timeoutSignal, timeoutCancel := signal.WithTimeout(timeoutDuration)
		signal = timeoutSignal
		cancel = func() { timeoutCancel(); baseCancel() }
	}
	defer cancel()

	controller := NewSignalController(signal, cancel)
	req.Signal = signal

	if rb.client.debug {
		if dbgReq, derr := req.toHTTPRequestWithSignal(signal); derr == nil {
			logRequest(debugLogger, dbgReq)
		}
	}

	startTime := time.Now()
	resp, err := rb.client.orchestrator.Execute(req, controller)
	duration := time.Since(startTime)

	// Record latency for adaptive hedging (only on success)
	if resp != nil && rb.adaptiveHedgeConfig != nil {
		rb.adaptiveHedgeConfig.GetTracker().Record(endpoint, duration)
	}

	if err != nil {
		return nil, err
	}

	// Debug logging for response
	if rb.client.debug {
		logResponse(debugLogger, resp.Response, duration)
	}

	resp.result = rb.result
	resp.errorResult = rb.errorResult

	// Generate cURL command if enabled
	if rb.client.generateCurl {
		resp.curlCommand = generateCurlCommand(resp.request, bodyBytes)
	}

	// Capture trace info if enabled
	if tracer != nil {
		resp.traceInfo = tracer.toTraceInfo()
	}

	// Read and decode body if targets are set
	if rb.result != nil || rb.errorResult != nil {
		if err := resp.decode(); err != nil {
			return resp, err
		}
	}

	if rb.responseHint != HintAuto {
		if err := resp.applyHint(rb.responseHint); err != nil {
			return resp, err
		}
	}

	return resp, nil
}

// buildURL constructs the full URL from base URL, path, and query params.
func (rb *RequestBuilder) buildURL() (string, error) {
	// Start with path
	path := rb.path

	// Replace path parameters
	for k, v := range rb.pathParams {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}

	// Build full URL using url.JoinPath for proper path handling
	var fullURL string
	var err error
	if rb.client.baseURL != "" {
		fullURL, err = url.JoinPath(rb.client.baseURL, path)
		if err != nil {
			return "", err
		}
	} else {
		fullURL = path
	}

	// Parse and add query params
	if len(rb.queryParams) > 0 {
		u, err := url.Parse(fullURL)
		if err != nil {
			return "", err
		}
		q := u.Query()
		for k, v := range rb.queryParams {
			for _, vv := range v {
				q.Add(k, vv)
			}
		}
		u.RawQuery = q.Encode()
		fullURL = u.String()
	}

	return fullURL, nil
}

// bodyEncodingError is an io.Reader that returns an error.
type bodyEncodingError struct {
	err error
}

func (e *bodyEncodingError) Read(_ []byte) (int, error) {
	return 0, e.err
}
