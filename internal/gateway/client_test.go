package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/roomcast-live/roomcast/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(strings.TrimPrefix(srv.URL, "http://"))
}

func TestAddPath(t *testing.T) {
	var gotPath string
	var gotBody addPathRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := client.AddPath("camera-7", "rtsp://10.1.2.3/cam", true, true); err != nil {
		t.Fatalf("AddPath: %v", err)
	}
	if gotPath != "/v3/config/paths/replace/camera-7" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if gotBody.Source != "rtsp://10.1.2.3/cam" || !gotBody.SourceOnDemand || gotBody.RTSPTransport != "tcp" {
		t.Fatalf("unexpected request body %+v", gotBody)
	}
}

func TestAddPathRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad source", http.StatusBadRequest)
	})

	err := client.AddPath("camera-7", "not-a-url", false, false)
	if err == nil {
		t.Fatal("expected error on 400 response")
	}
	if errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatal("a rejection is not an availability failure")
	}
}

func TestAddPathGatewayDown(t *testing.T) {
	client := NewClient("127.0.0.1:1")
	err := client.AddPath("camera-7", "rtsp://10.1.2.3/cam", false, false)
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestListPaths(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/paths/list" {
			t.Errorf("unexpected request path %q", r.URL.Path)
		}
		io.WriteString(w, `{"items":[
			{"name":"camera-7","source":{"type":"rtspSource"},"ready":true},
			{"name":"camera-8","source":null,"ready":false}
		]}`)
	})

	paths, err := client.ListPaths()
	if err != nil {
		t.Fatalf("ListPaths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	if paths[0] != (domain.GatewayPath{Name: "camera-7", Source: "rtspSource", Ready: true}) {
		t.Fatalf("unexpected path %+v", paths[0])
	}
	if paths[1] != (domain.GatewayPath{Name: "camera-8", Ready: false}) {
		t.Fatalf("unexpected path %+v", paths[1])
	}
}
