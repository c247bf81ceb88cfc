package httpclient

import "context"

// Typed request/response shortcuts. Each is sugar over RequestBuilder's
// fluent methods for a common call shape; none of them add new wire
// behavior beyond Decode/Hint/Body*.

// GetJSON issues a GET and decodes a successful JSON response into out.
func (c *Client) GetJSON(ctx context.Context, operationName, path string, out any) (*Response, error) {
	return c.Request(operationName).Decode(out).Get(ctx, path)
}

// GetText issues a GET and returns the response body as a string.
func (c *Client) GetText(ctx context.Context, operationName, path string) (*Response, string, error) {
	resp, err := c.Request(operationName).Hint(HintText).Get(ctx, path)
	if err != nil {
		return resp, "", err
	}
	return resp, resp.Data.(string), nil
}

// GetXML issues a GET and decodes a successful XML response into out.
func (c *Client) GetXML(ctx context.Context, operationName, path string, out any) (*Response, error) {
	return c.Request(operationName).Decode(out).Hint(HintXML).Get(ctx, path)
}

// GetHTML issues a GET and returns the response body as a raw HTML string.
func (c *Client) GetHTML(ctx context.Context, operationName, path string) (*Response, string, error) {
	resp, err := c.Request(operationName).Hint(HintHTML).Get(ctx, path)
	if err != nil {
		return resp, "", err
	}
	return resp, resp.Data.(string), nil
}

// GetBlob issues a GET and returns the response body as opaque bytes,
// for binary payloads the caller won't decode (images, downloads).
func (c *Client) GetBlob(ctx context.Context, operationName, path string) (*Response, []byte, error) {
	return c.getBytes(ctx, operationName, path, HintBlob)
}

// GetArrayBuffer is an alias of GetBlob/GetBytes matching the
// ArrayBuffer-shaped response hint, for parity with JS-client-style APIs.
func (c *Client) GetArrayBuffer(ctx context.Context, operationName, path string) (*Response, []byte, error) {
	return c.getBytes(ctx, operationName, path, HintArrayBuffer)
}

// GetBytes issues a GET and returns the raw response body.
func (c *Client) GetBytes(ctx context.Context, operationName, path string) (*Response, []byte, error) {
	return c.getBytes(ctx, operationName, path, HintBlob)
}

func (c *Client) getBytes(ctx context.Context, operationName, path string, hint ResponseTypeHint) (*Response, []byte, error) {
	resp, err := c.Request(operationName).Hint(hint).Get(ctx, path)
	if err != nil {
		return resp, nil, err
	}
	return resp, resp.Data.([]byte), nil
}

// GetNDJSON issues a GET and decodes a newline-delimited JSON response
// into out, which must be a pointer to a slice.
func (c *Client) GetNDJSON(ctx context.Context, operationName, path string, out any) (*Response, error) {
	resp, err := c.Request(operationName).Hint(HintNDJSON).Get(ctx, path)
	if err != nil {
		return resp, err
	}
	body, ok := resp.Data.([]byte)
	if !ok {
		return resp, nil
	}
	return resp, decodeNDJSON(body, out)
}

// PostJSON issues a POST with body encoded as JSON, decoding a successful
// JSON response into out (out may be nil to skip decoding).
func (c *Client) PostJSON(ctx context.Context, operationName, path string, body, out any) (*Response, error) {
	rb := c.Request(operationName).BodyJSON(body)
	if out != nil {
		rb = rb.Decode(out)
	}
	return rb.Post(ctx, path)
}

// PostForm issues a POST with body encoded as application/x-www-form-urlencoded.
func (c *Client) PostForm(ctx context.Context, operationName, path string, data map[string]string) (*Response, error) {
	return c.Request(operationName).BodyForm(data).Post(ctx, path)
}

// PostMultipart issues a POST with a multipart/form-data body built from
// fields and files.
func (c *Client) PostMultipart(ctx context.Context, operationName, path string, fields map[string]string, files ...FileUpload) (*Response, error) {
	rb := c.Request(operationName)
	for k, v := range fields {
		rb = rb.FormField(k, v)
	}
	for _, f := range files {
		rb = rb.FileReader(f.FieldName, f.FileName, f.Reader)
	}
	return rb.Post(ctx, path)
}

// PostSoap issues a POST with envelope encoded as XML and the
// SOAPAction header set, for talking to SOAP/WS-* services.
func (c *Client) PostSoap(ctx context.Context, operationName, path, soapAction string, envelope any) (*Response, error) {
	rb := c.Request(operationName).BodyXML(envelope)
	if soapAction != "" {
		rb = rb.Header("SOAPAction", soapAction)
	}
	return rb.Post(ctx, path)
}
