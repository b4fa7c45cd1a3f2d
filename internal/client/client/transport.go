package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/gophstream/internal/api"
	"github.com/dmitrijs2005/gophstream/internal/channel"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/hashicorp/go-retryablehttp"
)

const maxResponseBody = 4 << 20

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, header http.Header, body []byte) (*response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rawBody interface{}
	if body != nil {
		rawBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, rawBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", common.ErrTransportUnavailable, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", common.ErrTransportUnavailable, path, err)
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: b}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil, nil)
	if err != nil {
		return err
	}
	return decodePlain(resp, v)
}

func (c *Client) postJSON(ctx context.Context, path string, header http.Header, in, out any) (*response, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, http.MethodPost, path, nil, header, b)
	if err != nil {
		return nil, err
	}
	return resp, decodePlain(resp, out)
}

// sealedCall seals in (when not nil), sends it and opens the reply under
// tag into out.
func (c *Client) sealedCall(ctx context.Context, method, path string, query url.Values, tag string, in, out any) error {
	id, ch, err := c.sealedChannel()
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set(common.SessionIDHeaderName, id)

	var body []byte
	if in != nil {
		ct, mic, err := ch.SealJSON(in, "")
		if err != nil {
			return err
		}
		var micHeader string
		body, micHeader = channel.Encode(ct, mic)
		header.Set(common.MICHeaderName, micHeader)
		header.Set("Content-Type", "text/plain; charset=us-ascii")
	}

	resp, err := c.do(ctx, method, path, query, header, body)
	if err != nil {
		return err
	}
	return decodeSealed(resp, ch, tag, out)
}

// decodePlain handles responses of the unauthenticated endpoints.
func decodePlain(resp *response, out any) error {
	if resp.status != http.StatusOK {
		return apiError(resp.status, resp.body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeSealed opens a protected response. Errors raised before the session
// had a suite come back as plain JSON and are decoded as such.
func decodeSealed(resp *response, ch *channel.Channel, tag string, out any) error {
	micHeader := resp.header.Get(common.MICHeaderName)
	if micHeader == "" {
		if resp.status == http.StatusOK {
			return fmt.Errorf("%w: response carries no MIC", common.ErrIntegrity)
		}
		return apiError(resp.status, resp.body)
	}

	ct, mic, err := channel.Decode(resp.body, micHeader)
	if err != nil {
		return err
	}

	if resp.status != http.StatusOK {
		var er api.ErrorResponse
		if err := ch.OpenJSON(ct, mic, tag, &er); err != nil {
			return err
		}
		return &APIError{Status: resp.status, Code: er.Error, Message: er.Message}
	}
	return ch.OpenJSON(ct, mic, tag, out)
}

func apiError(status int, body []byte) error {
	var er api.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error == "" {
		return &APIError{Status: status, Code: common.CodeInternal, Message: string(bytes.TrimSpace(body))}
	}
	return &APIError{Status: status, Code: er.Error, Message: er.Message}
}
