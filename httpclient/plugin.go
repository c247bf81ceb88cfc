package httpclient

import "github.com/google/uuid"

// Plugin is the orchestrator's extension point: unlike the teacher's
// RequestInterceptor/ResponseInterceptor pair (plain func types with no
// attempt-level visibility), a Plugin's hooks receive the full Context,
// so they can inspect the attempt number, mutate shared Meta across
// attempts, or recover from an error by setting ctx.Res directly.
type Plugin struct {
	Name string

	// OnAttach runs once, when the plugin is registered with a Client.
	OnAttach func(*Client) error

	// OnRequest runs before every attempt, left to right across the
	// pipeline. The first error aborts the attempt with KindPlugin and
	// skips remaining OnRequest steps.
	OnRequest func(*Context) error

	// OnResponse runs after a successful attempt, right to left. A
	// raised error converts the attempt to the error path.
	OnResponse func(*Context) error

	// OnResponseError runs after a failed attempt, right to left. A
	// step may replace ctx.Err by returning a new error, leave it
	// untouched by returning nil without touching ctx.Err, or recover
	// by setting ctx.Res and clearing ctx.Err.
	OnResponseError func(*Context) error
}

// pipeline holds plugins in registration order and drives the
// onRequest/onResponse/onResponseError hooks for one attempt.
type pipeline struct {
	plugins []Plugin
}

func newPipeline(plugins []Plugin) *pipeline {
	return &pipeline{plugins: plugins}
}

// add appends plugin to the pipeline, used by Client.Use for registration
// after construction.
func (p *pipeline) add(plugin Plugin) {
	p.plugins = append(p.plugins, plugin)
}

// runOnRequest runs every plugin's OnRequest left to right. OnRequest
// re-runs on every attempt (including retries), so a plugin that
// refreshes a bearer token on 401 sees its own refresh applied to the
// next attempt's request.
func (p *pipeline) runOnRequest(ctx *Context) error {
	for _, plug := range p.plugins {
		if plug.OnRequest == nil {
			continue
		}
		if err := plug.OnRequest(ctx); err != nil {
			ctx.Err = newError(KindPlugin, nil, nil, ctx.Req.Tags, ctx.Attempt, err)
			return ctx.Err
		}
	}
	return nil
}

// runOnResponse runs every plugin's OnResponse right to left. A raised
// error converts the attempt to the failure path; the caller is
// responsible for then invoking runOnResponseError.
func (p *pipeline) runOnResponse(ctx *Context) error {
	for i := len(p.plugins) - 1; i >= 0; i-- {
		plug := p.plugins[i]
		if plug.OnResponse == nil {
			continue
		}
		if err := plug.OnResponse(ctx); err != nil {
			ctx.Err = newError(KindPlugin, nil, nil, ctx.Req.Tags, ctx.Attempt, err)
			return ctx.Err
		}
	}
	return nil
}

// runOnResponseError runs every plugin's OnResponseError right to left.
// Each step sees the Err left by the previous step (or the original
// transport/HTTP failure on the first step), and may replace it,
// leave it, or recover by setting ctx.Res and clearing ctx.Err.
func (p *pipeline) runOnResponseError(ctx *Context) {
	for i := len(p.plugins) - 1; i >= 0; i-- {
		plug := p.plugins[i]
		if plug.OnResponseError == nil {
			continue
		}
		if err := plug.OnResponseError(ctx); err != nil {
			ctx.Err = newError(KindPlugin, nil, nil, ctx.Req.Tags, ctx.Attempt, err)
			continue
		}
		if ctx.Res != nil {
			// A plugin recovered: clear the error and stop running
			// remaining (more outward) error hooks for this attempt.
			ctx.Err = nil
			return
		}
	}
}

// Built-in plugins, generalized from the teacher's interceptor helpers.

// AuthBearerPlugin adds a static Bearer token to every request.
func AuthBearerPlugin(token string) Plugin {
	return Plugin{
		Name: "auth-bearer",
		OnRequest: func(ctx *Context) error {
			ctx.Req.Header.Set("Authorization", "Bearer "+token)
			return nil
		},
	}
}

// AuthBearerFuncPlugin adds a Bearer token fetched dynamically, so a
// refresh-on-401 flow can supply a new token on the next attempt.
func AuthBearerFuncPlugin(tokenFunc func() (string, error)) Plugin {
	return Plugin{
		Name: "auth-bearer-func",
		OnRequest: func(ctx *Context) error {
			token, err := tokenFunc()
			if err != nil {
				return err
			}
			ctx.Req.Header.Set("Authorization", "Bearer "+token)
			return nil
		},
	}
}

// APIKeyPlugin adds a static API key header to every request.
func APIKeyPlugin(headerName, apiKey string) Plugin {
	return Plugin{
		Name: "api-key",
		OnRequest: func(ctx *Context) error {
			ctx.Req.Header.Set(headerName, apiKey)
			return nil
		},
	}
}

// CorrelationIDPlugin stamps a header with a fresh value each attempt.
// Defaults to a random UUID per attempt when idFunc is nil.
func CorrelationIDPlugin(headerName string, idFunc func() string) Plugin {
	if idFunc == nil {
		idFunc = func() string { return uuid.NewString() }
	}
	return Plugin{
		Name: "correlation-id",
		OnRequest: func(ctx *Context) error {
			ctx.Req.Header.Set(headerName, idFunc())
			return nil
		},
	}
}

// UserAgentPlugin sets a fixed User-Agent header.
func UserAgentPlugin(userAgent string) Plugin {
	return Plugin{
		Name: "user-agent",
		OnRequest: func(ctx *Context) error {
			ctx.Req.Header.Set("User-Agent", userAgent)
			return nil
		},
	}
}
