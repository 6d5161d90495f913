package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoadAppConfigDefaults(t *testing.T) {
	cfg, err := LoadAppConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 13478 {
		t.Fatalf("expected default port, got %d", cfg.Server.Port)
	}
	if cfg.Presence.TTLSeconds != 30 || cfg.Presence.SweepIntervalSeconds != 10 {
		t.Fatalf("unexpected presence defaults %+v", cfg.Presence)
	}
	if len(cfg.WebRTC.Codecs) != 2 {
		t.Fatalf("expected default codec set, got %d codecs", len(cfg.WebRTC.Codecs))
	}
	if cfg.Gateway.RTSPPort != 8554 {
		t.Fatalf("expected default gateway port, got %d", cfg.Gateway.RTSPPort)
	}
}

func TestLoadAppConfigOverridesKeepUnsetDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "server.yaml", "port: 9000\n")
	writeConfigFile(t, dir, "presence.yaml", "ttlSeconds: 60\n")

	cfg, err := LoadAppConfig(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Fatalf("expected overridden port, got %d", cfg.Server.Port)
	}
	if cfg.Server.PingInterval != 3000 {
		t.Fatalf("unset field must keep its default, got %d", cfg.Server.PingInterval)
	}
	if cfg.Presence.TTLSeconds != 60 {
		t.Fatalf("expected overridden TTL, got %d", cfg.Presence.TTLSeconds)
	}
	if cfg.Presence.SweepIntervalSeconds != 10 {
		t.Fatalf("unset field must keep its default, got %d", cfg.Presence.SweepIntervalSeconds)
	}
}

func TestLoadAppConfigJSONFallback(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "gateway.json", `{"rtspHost": "gateway.local", "apiAddress": "gateway.local:9997"}`)

	cfg, err := LoadAppConfig(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gateway.RTSPHost != "gateway.local" || cfg.Gateway.APIAddress != "gateway.local:9997" {
		t.Fatalf("unexpected gateway config %+v", cfg.Gateway)
	}
	if cfg.Gateway.RTSPPort != 8554 {
		t.Fatalf("unset field must keep its default, got %d", cfg.Gateway.RTSPPort)
	}
}

func TestLoadAppConfigEmptyFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "server.yaml", "")

	cfg, err := LoadAppConfig(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 13478 {
		t.Fatalf("empty file must keep defaults, got port %d", cfg.Server.Port)
	}
}

func TestLoadAppConfigCodecOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "webrtc.yaml", `
codecs:
  - params:
      mimeType: video/H264
      clockRate: 90000
      payloadType: 102
    type: video
`)

	cfg, err := LoadAppConfig(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.WebRTC.Codecs) != 1 {
		t.Fatalf("codec list must replace the default set wholesale, got %d codecs", len(cfg.WebRTC.Codecs))
	}
	codec := cfg.WebRTC.Codecs[0]
	if codec.Params.MimeType != "video/H264" || codec.Params.PayloadType != 102 {
		t.Fatalf("unexpected codec %+v", codec)
	}
	if len(codec.Params.RTCPFeedback) == 0 {
		t.Fatal("video codecs must carry the standard RTCP feedback set")
	}
}
