package store

import (
	"errors"
	"fmt"

	"github.com/arloliu/genostore/container"
	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/registry"
	"github.com/arloliu/genostore/stream"
	"github.com/arloliu/genostore/transform"
)

// Load restores a single stream from a container without running a Storeman.
//
// Absent streams and streams stored empty yield an empty result. The config comes from
// src; when src has none and reg knows the canonical name, the default config is used.
// reg may be nil.
func Load(r *container.Reader, src Source, reg *registry.Registry, eng Engine, name string) ([]byte, error) {
	payload, err := r.Unpack(name)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, nil
	}

	config := stream.ConfigName(name)
	cfg, err := loadConfig(src, reg, config)
	if err != nil {
		return nil, fmt.Errorf("stream %q: %w", name, err)
	}

	data, err := eng.Run(cfg, payload, true)
	if err != nil {
		return nil, fmt.Errorf("decompress %q: %w", name, err)
	}

	return data, nil
}

func loadConfig(src Source, reg *registry.Registry, config string) (*transform.Config, error) {
	if src != nil {
		cfg, err := src.Load(config)
		if err == nil || !errors.Is(err, errs.ErrConfigNotFound) {
			return cfg, err
		}
	}

	if c, ok := reg.Lookup(config); ok {
		return transform.DefaultConfig(c), nil
	}

	return nil, fmt.Errorf("%w: %q", errs.ErrConfigNotFound, config)
}
