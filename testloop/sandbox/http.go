package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"
)

// AllowedMethods are the only verbs CheckAPIEndpoint will send.
var AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

type httpProber struct {
	client  *http.Client
	timeout time.Duration
	maxBody int64
}

func newHTTPProber(timeout time.Duration, maxBody int64) *httpProber {
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &httpProber{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		maxBody: maxBody,
	}
}

func (p *httpProber) probe(ctx context.Context, url, method string, payload any, headers map[string]string) HTTPResult {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	res := HTTPResult{Method: method, URL: url}

	if !slices.Contains(AllowedMethods, method) {
		res.Error = fmt.Sprintf("unsupported method: %s", method)
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Error = fmt.Sprintf("cancelled before request: %v", err)
		return res
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			res.Error = fmt.Sprintf("invalid payload: %v", err)
			return res
		}
		body = bytes.NewReader(data)
	}

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, url, body)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		res.Error = describeHTTPError(err)
		return res
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody))
	if err != nil {
		res.Error = describeHTTPError(err)
		return res
	}

	res.StatusCode = resp.StatusCode
	res.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
	res.Headers = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		res.Headers[k] = resp.Header.Get(k)
	}

	var decoded any
	if len(raw) > 0 && json.Unmarshal(raw, &decoded) == nil {
		res.Response = decoded
	} else {
		res.Response = string(raw)
	}
	return res
}

func describeHTTPError(err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return timedOut
	}
	return err.Error()
}
