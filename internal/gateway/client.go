// Package gateway talks to the control API of the RTSP restreaming gateway
// (a MediaMTX-style server) that pulls camera sources and re-serves them to
// ingest bots.
package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/metrics"
)

const requestTimeout = 5 * time.Second

type Client struct {
	baseURL string
	http    *fasthttp.Client
}

func NewClient(apiAddress string) *Client {
	return &Client{
		baseURL: "http://" + apiAddress,
		http: &fasthttp.Client{
			ReadTimeout:  requestTimeout,
			WriteTimeout: requestTimeout,
		},
	}
}

type addPathRequest struct {
	Source         string `json:"source"`
	SourceOnDemand bool   `json:"sourceOnDemand"`
	RTSPTransport  string `json:"rtspTransport,omitempty"`
}

// AddPath registers a camera source under the given path name. An existing
// path with the same name is replaced.
func (c *Client) AddPath(name, sourceURL string, onDemand, forceTCP bool) error {
	body := addPathRequest{
		Source:         sourceURL,
		SourceOnDemand: onDemand,
	}
	if forceTCP {
		body.RTSPTransport = "tcp"
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	status, _, err := c.do(fasthttp.MethodPost, "/v3/config/paths/replace/"+name, payload)
	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues("add_path", "error").Inc()
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	if status >= 300 {
		metrics.GatewayRequestsTotal.WithLabelValues("add_path", "error").Inc()
		return fmt.Errorf("gateway rejected path %q: status %d", name, status)
	}

	metrics.GatewayRequestsTotal.WithLabelValues("add_path", "ok").Inc()
	return nil
}

type pathList struct {
	Items []struct {
		Name   string `json:"name"`
		Source *struct {
			Type string `json:"type"`
		} `json:"source"`
		Ready bool `json:"ready"`
	} `json:"items"`
}

// ListPaths returns the paths currently live on the gateway.
func (c *Client) ListPaths() ([]domain.GatewayPath, error) {
	status, body, err := c.do(fasthttp.MethodGet, "/v3/paths/list", nil)
	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues("list_paths", "error").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	if status >= 300 {
		metrics.GatewayRequestsTotal.WithLabelValues("list_paths", "error").Inc()
		return nil, fmt.Errorf("gateway list failed: status %d", status)
	}

	var list pathList
	if err := json.Unmarshal(body, &list); err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues("list_paths", "error").Inc()
		return nil, fmt.Errorf("decoding gateway path list: %w", err)
	}

	paths := make([]domain.GatewayPath, 0, len(list.Items))
	for _, item := range list.Items {
		p := domain.GatewayPath{Name: item.Name, Ready: item.Ready}
		if item.Source != nil {
			p.Source = item.Source.Type
		}
		paths = append(paths, p)
	}

	metrics.GatewayRequestsTotal.WithLabelValues("list_paths", "ok").Inc()
	return paths, nil
}

func (c *Client) do(method, path string, body []byte) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	if err := c.http.DoTimeout(req, resp, requestTimeout); err != nil {
		return 0, nil, err
	}

	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return resp.StatusCode(), out, nil
}
