package domain

// GatewayPath describes one camera path registered on the media gateway.
type GatewayPath struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Ready  bool   `json:"ready"`
}

// Gateway is the control API of the external RTSP media gateway.
type Gateway interface {
	// AddPath registers a camera source under the given path name.
	AddPath(name, sourceURL string, onDemand, forceTCP bool) error

	// ListPaths returns the currently configured paths.
	ListPaths() ([]GatewayPath, error)
}
