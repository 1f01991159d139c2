package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
	"github.com/google/uuid"
)

const (
	defaultTimeout  = 30 * time.Second
	requestIDHeader = "X-Request-Id"
)

type Params struct {
	BaseURL    string
	Logger     *logger.Logger
	HTTPClient *http.Client
	Jar        http.CookieJar

	// Refresh, when set, turns a 401 on any call into one shared refresh
	// cycle followed by a single retry of the original request.
	Refresh *RefreshManager
}

// Client is the storefront API client. Authentication rides on the cookie
// jar; no operation attaches bearer headers.
type Client struct {
	baseURL string
	http    *http.Client
	refresh *RefreshManager
	logg    *logger.Logger
}

func New(params Params) (*Client, error) {
	if params.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}

	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if params.Jar != nil {
		httpClient.Jar = params.Jar
	}

	return &Client{
		baseURL: params.BaseURL,
		http:    httpClient,
		refresh: params.Refresh,
		logg:    params.Logger,
	}, nil
}

// HTTP exposes the underlying client for wiring that must share the jar,
// such as the refresh request itself.
func (c *Client) HTTP() *http.Client {
	return c.http
}

// Do sends one API request and decodes the enveloped response into out. On a
// 401 it waits for the shared refresh cycle and replays the request exactly
// once. Every error returned is a *pkgerrors.Error; a zero status on it means
// the request never produced a response.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, method, path, body, out, true)
}

// DoNoRefresh sends a request whose 401 must surface to the caller directly.
// Login and logout use it so invalid credentials never start a refresh cycle.
func (c *Client) DoNoRefresh(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, method, path, body, out, false)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, allowRefresh bool) error {
	// The body is marshaled once so the request can be replayed after a
	// credential refresh.
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
		}
		payload = encoded
	}

	resp, respBody, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && allowRefresh && c.refresh != nil {
		if refreshErr := c.refresh.Await(ctx); refreshErr != nil {
			return refreshErr
		}
		c.logg.Info(c.logg.WithField(ctx, "path", path), "retrying request after credential refresh")
		resp, respBody, err = c.send(ctx, method, path, payload)
		if err != nil {
			return err
		}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp.StatusCode, respBody)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}

	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDecoding, err, "decoding response envelope").WithStatus(resp.StatusCode)
	}
	if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDecoding, err, "decoding response payload").WithStatus(resp.StatusCode)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err,
			pkgerrors.MetadataFor(pkgerrors.CodeNetwork).PublicMessage)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "reading response body")
	}
	return resp, respBody, nil
}

// decodeError maps a non-2xx response to a typed error, passing the server's
// own message through verbatim when the body carries the error envelope.
func decodeError(status int, body []byte) error {
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return pkgerrors.FromStatus(status, envelope.Error.Message).WithDetails(envelope.Error.Details)
	}
	return pkgerrors.FromStatus(status, "")
}
