package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RequestBuilder helps build HTTP requests with fluent API
type RequestBuilder struct {
	method  string
	baseURL string
	path    string
	query   url.Values
	headers map[string]string
	body    any
}

func NewRequest(method, baseURL string) *RequestBuilder {
	return &RequestBuilder{
		method:  method,
		baseURL: strings.TrimRight(baseURL, "/"),
		query:   make(url.Values),
		headers: make(map[string]string),
	}
}

// Path sets the URL path, joining segments with "/" and escaping each one.
func (b *RequestBuilder) Path(segments ...string) *RequestBuilder {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(strings.Trim(s, "/"))
	}
	b.path = "/" + strings.Join(escaped, "/")
	return b
}

func (b *RequestBuilder) Query(key, value string) *RequestBuilder {
	b.query.Add(key, value)
	return b
}

func (b *RequestBuilder) Header(key, value string) *RequestBuilder {
	b.headers[key] = value
	return b
}

// JSON sets the request body as JSON
func (b *RequestBuilder) JSON(body any) *RequestBuilder {
	b.body = body
	b.headers["Content-Type"] = "application/json"
	return b
}

func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	u, err := url.Parse(b.baseURL + b.path)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(b.query) > 0 {
		u.RawQuery = b.query.Encode()
	}

	var bodyReader io.Reader
	if b.body != nil {
		encoded, err := json.Marshal(b.body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, b.method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// ExecuteJSON builds the request, runs it on client and decodes the JSON
// response into result.
func (b *RequestBuilder) ExecuteJSON(ctx context.Context, client *Client, result any) error {
	req, err := b.Build(ctx)
	if err != nil {
		return err
	}
	return client.DoJSON(ctx, req, result)
}
