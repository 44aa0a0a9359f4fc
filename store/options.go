package store

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/arloliu/genostore/container"
	"github.com/arloliu/genostore/internal/options"
	"github.com/arloliu/genostore/registry"
)

// Mode selects the direction a Storeman runs the transform in.
type Mode uint8

const (
	// ModeCompress compresses submitted streams, deriving missing configs by analysis.
	ModeCompress Mode = iota
	// ModeDecompress restores submitted streams. Configs must be loadable; analysis
	// never runs.
	ModeDecompress
)

func (m Mode) String() string {
	if m == ModeDecompress {
		return "decompress"
	}

	return "compress"
}

// ParseMode maps "compress" or "decompress" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "compress":
		return ModeCompress, nil
	case "decompress":
		return ModeDecompress, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

type settings struct {
	workers       int
	mode          Mode
	verify        bool
	registry      *registry.Registry
	engine        Engine
	source        Source
	logger        logrus.FieldLogger
	registerer    prometheus.Registerer
	containerOpts []container.Option
}

func defaultSettings() *settings {
	return &settings{
		workers:  runtime.GOMAXPROCS(0),
		mode:     ModeCompress,
		registry: registry.Default(),
		logger:   logrus.StandardLogger(),
	}
}

// Option configures a Storeman.
type Option = options.Option[*settings]

// WithWorkers sets the number of worker goroutines. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return options.New(func(s *settings) error {
		if n <= 0 {
			return fmt.Errorf("worker count must be positive, got %d", n)
		}
		s.workers = n

		return nil
	})
}

// WithMode sets the transform direction. Defaults to ModeCompress.
func WithMode(m Mode) Option {
	return options.New(func(s *settings) error {
		if m != ModeCompress && m != ModeDecompress {
			return fmt.Errorf("invalid mode %d", m)
		}
		s.mode = m

		return nil
	})
}

// WithVerify makes compression decode every result again and compare digests with the
// input. A mismatch fails the Storeman with errs.ErrVerifyMismatch.
func WithVerify(verify bool) Option {
	return options.NoError(func(s *settings) {
		s.verify = verify
	})
}

// WithRegistry sets the bootstrap constraints table. Defaults to registry.Default().
func WithRegistry(r *registry.Registry) Option {
	return options.New(func(s *settings) error {
		if r == nil {
			return fmt.Errorf("registry must not be nil")
		}
		s.registry = r

		return nil
	})
}

// WithEngine sets the transform engine. Defaults to transform.NewEngine().
func WithEngine(e Engine) Option {
	return options.New(func(s *settings) error {
		if e == nil {
			return fmt.Errorf("engine must not be nil")
		}
		s.engine = e

		return nil
	})
}

// WithSource sets where configs are loaded from and derived configs saved to. Without a
// source every config is derived and nothing is persisted.
func WithSource(src Source) Option {
	return options.NoError(func(s *settings) {
		s.source = src
	})
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return options.New(func(s *settings) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		s.logger = logger

		return nil
	})
}

// WithRegisterer registers the Storeman metrics on reg. By default they go to a private
// registry and are not exported. New panics when reg already holds the metrics of
// another Storeman.
func WithRegisterer(reg prometheus.Registerer) Option {
	return options.NoError(func(s *settings) {
		s.registerer = reg
	})
}

// WithContainerOptions passes options to the container writer, such as its byte order.
func WithContainerOptions(opts ...container.Option) Option {
	return options.NoError(func(s *settings) {
		s.containerOpts = append(s.containerOpts, opts...)
	})
}

// ContainerOptions returns the container options carried by opts, so a reader can use
// the byte order a Storeman writes with. Invalid options are ignored.
func ContainerOptions(opts ...Option) []container.Option {
	s := &settings{}
	_ = options.Apply(s, opts...)

	return s.containerOpts
}
