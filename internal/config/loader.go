package config

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"

	"gopkg.in/yaml.v3"
)

// LoadAppConfig builds the effective configuration by layering per-section
// files from dir over the compiled-in defaults. Missing files keep the
// defaults; a present file overrides only the fields it sets.
func LoadAppConfig(dir string) (*AppConfig, error) {
	cfg := DefaultAppConfig()

	var rawServer RawServerConfig
	if err := loadFileInto(dir, "server", &rawServer); err != nil {
		return nil, err
	}
	mergeInto(&cfg.Server, rawServer.ToDomain())

	var rawWebRTC RawWebRTCConfig
	if err := loadFileInto(dir, "webrtc", &rawWebRTC); err != nil {
		return nil, err
	}
	mergeInto(&cfg.WebRTC, rawWebRTC.ToDomain())

	var rawIngest RawIngestConfig
	if err := loadFileInto(dir, "ingest", &rawIngest); err != nil {
		return nil, err
	}
	mergeInto(&cfg.Ingest, rawIngest.ToDomain())

	var rawPresence RawPresenceConfig
	if err := loadFileInto(dir, "presence", &rawPresence); err != nil {
		return nil, err
	}
	mergeInto(&cfg.Presence, rawPresence.ToDomain())

	var rawGateway RawGatewayConfig
	if err := loadFileInto(dir, "gateway", &rawGateway); err != nil {
		return nil, err
	}
	mergeInto(&cfg.Gateway, rawGateway.ToDomain())

	return &cfg, nil
}

func loadFileInto(dir, filenameBase string, target interface{}) error {
	basePath := filepath.Join(dir, filenameBase)

	if f, err := os.Open(basePath + ".yaml"); err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(target); err != nil {
			if errors.Is(err, io.EOF) {
				slog.Warn("config file is empty, using defaults", "file", basePath+".yaml")
				return nil
			}
			return err
		}
		return nil
	}

	if f, err := os.Open(basePath + ".json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(target); err != nil {
			if errors.Is(err, io.EOF) {
				slog.Warn("config file is empty, using defaults", "file", basePath+".json")
				return nil
			}
			return err
		}
		return nil
	}

	return nil
}

func mergeInto(dst, src interface{}) {
	dstVal := reflect.ValueOf(dst).Elem()
	srcVal := reflect.ValueOf(src)

	mergeValues(dstVal, srcVal)
}

func mergeValues(dstVal, srcVal reflect.Value) {
	for i := 0; i < srcVal.NumField(); i++ {
		srcField := srcVal.Field(i)
		dstField := dstVal.Field(i)

		switch srcField.Kind() {
		case reflect.Struct:
			mergeValues(dstField, srcField)
		case reflect.Slice:
			if !srcField.IsNil() && srcField.Len() > 0 {
				dstField.Set(srcField)
			}
		case reflect.Pointer:
			if !srcField.IsNil() {
				dstField.Set(srcField)
			}
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}
}
