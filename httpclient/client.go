package httpclient

import (
	"net/http"
)

// Client is a high-level HTTP client with fluent request building,
// OpenTelemetry instrumentation, and retry support.
//
// Create a Client using New():
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.example.com"),
//	    httpclient.WithServiceName("payment-service"),
//	)
//
//	resp, err := client.Request("CreatePayment").
//	    Path("/payments").
//	    Body(payment).
//	    Post(ctx)
type Client struct {
	// httpClient is the underlying HTTP client with transport chain.
	httpClient *http.Client

	// config holds all client configuration.
	config *internalConfig

	// orchestrator drives calls made through RequestBuilder: debounce,
	// rate limiting, dedup, retry and hedging, all policy-resolved per
	// call. httpClient/HTTP() remains the plain transport-chain path for
	// callers who want the raw *http.Client.
	orchestrator *orchestrator

	// baseURL is the base URL for all requests.
	baseURL string

	// defaultHeaders are applied to all requests.
	defaultHeaders http.Header

	// debug enables request/response logging.
	debug bool

	// generateCurl enables cURL command generation.
	generateCurl bool

	// enableTrace enables timing trace info collection.
	enableTrace bool

	// extensions holds values registered via SetExtension, keyed by
	// the name the plugin/component chose for itself (e.g. a breaker's
	// shared store, a custom auth provider a plugin wants reachable by
	// other code). Looked up with Extension(key).
	extensions map[string]any
}

// Use registers plugin on the client's pipeline after construction and
// returns the client for chaining. Prefer WithPlugins(...) at New() time;
// Use exists for plugins that need a reference to the constructed Client
// itself (for example to call Extension on another already-registered
// plugin) before they can be built.
func (c *Client) Use(plugin Plugin) *Client {
	c.orchestrator.pipeline.add(plugin)
	if plugin.OnAttach != nil {
		_ = plugin.OnAttach(c)
	}
	return c
}

// Extension returns the value registered under key via SetExtension, and
// whether it was found. Used to let plugins publish a capability (a token
// source, a shared cache, a breaker's SharedDataStore) for other plugins
// or call sites to retrieve by name.
func (c *Client) Extension(key string) (any, bool) {
	v, ok := c.extensions[key]
	return v, ok
}

// SetExtension registers value under key for later retrieval via Extension.
func (c *Client) SetExtension(key string, value any) {
	if c.extensions == nil {
		c.extensions = make(map[string]any)
	}
	c.extensions[key] = value
}

// HTTP returns the underlying *http.Client for advanced use cases.
//
// Use this when you need to:
//   - Pass the client to third-party libraries expecting *http.Client
//   - Access transport-level settings
//   - Make requests without the fluent builder
//
// Example:
//
//	rawClient := client.HTTP()
//	resp, err := rawClient.Do(req)
func (c *Client) HTTP() *http.Client {
	return c.httpClient
}

// Request creates a new RequestBuilder for the given operation name.
//
// The operation name is used for:
//   - OpenTelemetry span naming (e.g., "HTTP POST CreatePayment")
//   - Debug logging identification
//   - Metrics labeling
//
// Example:
//
//	resp, err := client.Request("CreateUser").
//	    Path("/users").
//	    Body(user).
//	    Post(ctx)
func (c *Client) Request(operationName string) *RequestBuilder {
	return &RequestBuilder{
		client:        c,
		operationName: operationName,
		headers:       make(http.Header),
		pathParams:    make(map[string]string),
	}
}

// New creates a Client with production-ready defaults and OpenTelemetry instrumentation.
//
// The client includes:
//   - Connection pooling and timeouts
//   - OpenTelemetry tracing and metrics
//   - Retry with exponential backoff
//   - Fluent request builder via Request()
//
// Example - Basic usage:
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.example.com"),
//	    httpclient.WithServiceName("my-service"),
//	)
//
//	resp, err := client.Request("GetUsers").Get(ctx, "/users")
//
// Example - With retry configuration:
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.example.com"),
//	    httpclient.WithDefaultRetryPolicy(httpclient.RetryPolicy{
//	        Enabled:    true,
//	        MaxRetries: 5,
//	    }),
//	)
func New(opts ...Option) *Client {
	cfg := newConfig(opts...)

	var rt http.RoundTripper
	if cfg.MockTransport != nil {
		rt = cfg.MockTransport
	} else {
		rt = cfg.buildTransport()
	}
	if cfg.ChaosConfig != nil {
		rt = newChaosTransport(rt, *cfg.ChaosConfig)
	}
	withBreaker := newCircuitBreakerTransport(rt, cfg)
	instrumented := newOtelTransport(withBreaker, cfg)

	httpClient := &http.Client{
		Transport: instrumented,
		Timeout:   cfg.httpConfig.Timeout,
	}

	c := &Client{
		httpClient:     httpClient,
		config:         cfg,
		orchestrator:   newOrchestrator(cfg, instrumented),
		baseURL:        cfg.BaseURL,
		defaultHeaders: cfg.DefaultHeaders,
		debug:          cfg.Debug,
		generateCurl:   cfg.GenerateCurl,
		enableTrace:    cfg.EnableTrace,
	}
	attachPlugins(c, cfg.Plugins)
	return c
}

// attachPlugins runs each construction-time plugin's OnAttach hook now that
// the Client exists, so a plugin can publish capabilities via
// Client.SetExtension or look up another plugin's via Client.Extension.
func attachPlugins(c *Client, plugins []Plugin) {
	for _, p := range plugins {
		if p.OnAttach != nil {
			_ = p.OnAttach(c)
		}
	}
}

// NewTransport creates an instrumented http.RoundTripper that can be used
// with a custom http.Client.
//
// This is useful when you need more control over the http.Client configuration
// but still want OpenTelemetry instrumentation.
//
// Example:
//
//	transport := httpclient.NewTransport(http.DefaultTransport,
//	    httpclient.WithServiceName("my-service"),
//	)
//	client := &http.Client{
//	    Transport: transport,
//	    Timeout:   30 * time.Second,
//	}
func NewTransport(base http.RoundTripper, opts ...Option) http.RoundTripper {
	cfg := newConfig(opts...)
	return newOtelTransport(base, cfg)
}

// NewWithTransport creates a Client using a custom base transport
// with OpenTelemetry instrumentation wrapped around it.
//
// The provided transport will be wrapped with tracing and metrics.
// Use this when you need precise control over the underlying transport
// but want to add observability.
//
// Example:
//
//	transport := &http.Transport{
//	    MaxIdleConnsPerHost: 50,
//	    DisableCompression:  true,
//	}
//	client := httpclient.NewWithTransport(transport,
//	    httpclient.WithBaseURL("https://api.example.com"),
//	    httpclient.WithServiceName("my-service"),
//	)
func NewWithTransport(base http.RoundTripper, opts ...Option) *Client {
	cfg := newConfig(opts...)

	instrumented := newOtelTransport(base, cfg)
	httpClient := &http.Client{
		Transport: instrumented,
		Timeout:   cfg.httpConfig.Timeout,
	}

	c := &Client{
		httpClient:     httpClient,
		config:         cfg,
		orchestrator:   newOrchestrator(cfg, instrumented),
		baseURL:        cfg.BaseURL,
		defaultHeaders: cfg.DefaultHeaders,
		debug:          cfg.Debug,
		generateCurl:   cfg.GenerateCurl,
		enableTrace:    cfg.EnableTrace,
	}
	attachPlugins(c, cfg.Plugins)
	return c
}

// WrapClient wraps an existing http.Client's transport with OpenTelemetry instrumentation.
//
// This modifies the client in-place and returns a new Client wrapper.
// If the client has no transport, http.DefaultTransport is used.
//
// Example:
//
//	httpClient := &http.Client{Timeout: 30 * time.Second}
//	client := httpclient.WrapClient(httpClient,
//	    httpclient.WithServiceName("my-service"),
//	)
func WrapClient(httpClient *http.Client, opts ...Option) *Client {
	cfg := newConfig(opts...)

	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	httpClient.Transport = newOtelTransport(base, cfg)

	c := &Client{
		httpClient:     httpClient,
		config:         cfg,
		orchestrator:   newOrchestrator(cfg, httpClient.Transport),
		baseURL:        cfg.BaseURL,
		defaultHeaders: cfg.DefaultHeaders,
		debug:          cfg.Debug,
		generateCurl:   cfg.GenerateCurl,
		enableTrace:    cfg.EnableTrace,
	}
	attachPlugins(c, cfg.Plugins)
	return c
}
