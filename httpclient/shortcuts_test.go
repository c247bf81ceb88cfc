package httpclient

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusOK, `{"id":1,"name":"ada"}`)
	client := New(WithBaseURL("https://api.example.com"), WithMockTransport(mock))

	type user struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	var out user
	resp, err := client.GetJSON(context.Background(), "GetUser", "/users/1", &out)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, user{ID: 1, Name: "ada"}, out)
}

func TestGetText(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusOK, "hello world")
	client := New(WithBaseURL("https://api.example.com"), WithMockTransport(mock))

	_, text, err := client.GetText(context.Background(), "GetGreeting", "/greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestGetBytes(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusOK, "\x00\x01\x02")
	client := New(WithBaseURL("https://api.example.com"), WithMockTransport(mock))

	_, data, err := client.GetBytes(context.Background(), "GetBlob", "/blob")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x00\x01\x02"), data)
}

func TestGetNDJSON(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusOK, "{\"id\":1}\n{\"id\":2}\n")
	client := New(WithBaseURL("https://api.example.com"), WithMockTransport(mock))

	type row struct {
		ID int `json:"id"`
	}
	var out []row
	_, err := client.GetNDJSON(context.Background(), "StreamRows", "/rows", &out)
	require.NoError(t, err)
	assert.Equal(t, []row{{ID: 1}, {ID: 2}}, out)
}

func TestPostJSON(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusCreated, `{"id":42}`)
	client := New(WithBaseURL("https://api.example.com"), WithMockTransport(mock))

	type created struct {
		ID int `json:"id"`
	}
	var out created
	resp, err := client.PostJSON(context.Background(), "CreateUser", "/users", map[string]string{"name": "ada"}, &out)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 42, out.ID)
}

func TestPostForm(t *testing.T) {
	t.Parallel()

	var capturedBody string
	mock := NewMockTransport().
		StubResponse(http.StatusOK, `{}`).
		OnRequest(func(req *http.Request) {
			b := make([]byte, 64)
			n, _ := req.Body.Read(b)
			capturedBody = string(b[:n])
		})
	client := New(WithBaseURL("https://api.example.com"), WithMockTransport(mock))

	_, err := client.PostForm(context.Background(), "Login", "/login", map[string]string{"username": "ada"})
	require.NoError(t, err)
	assert.Contains(t, capturedBody, "username=ada")
}

func TestClientUseAndExtension(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusOK, `{}`)
	client := New(WithBaseURL("https://api.example.com"), WithMockTransport(mock))

	attached := false
	client.Use(Plugin{
		Name: "publisher",
		OnAttach: func(c *Client) error {
			attached = true
			c.SetExtension("greeting", "hello")
			return nil
		},
	})

	assert.True(t, attached)
	v, ok := client.Extension("greeting")
	require.True(t, ok)
	assert.Equal(t, "hello", v)

	_, ok = client.Extension("missing")
	assert.False(t, ok)
}

func TestWithPluginsOnAttachRunsAtConstruction(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusOK, `{}`)
	var seen *Client
	client := New(
		WithBaseURL("https://api.example.com"),
		WithMockTransport(mock),
		WithPlugins(Plugin{
			Name: "startup",
			OnAttach: func(c *Client) error {
				seen = c
				return nil
			},
		}),
	)

	assert.Same(t, client, seen)
}
