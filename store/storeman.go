// Package store schedules the compression of named genomic descriptor streams and packs
// the results into a container in submission order.
//
// A Storeman owns a fixed pool of workers. Producers call Store for every stream; each
// call takes a ticket that fixes the stream's position in the output. Workers share one
// mutex and one condition variable guarding three collections:
//
//   - pending: submitted jobs in arrival order
//   - blocked: jobs whose config is being derived by another worker
//   - done: processed jobs sorted by ticket, waiting for their turn to be packed
//
// Every loop iteration a worker first packs the done job holding the next write ticket,
// then takes the oldest pending job, resolves its canonical config name with
// stream.ConfigName and either loads or derives the config (at most once per name) or
// runs the transform. Container writes, analysis, config I/O and transforms all run with
// the mutex released.
//
//	sm, _ := store.New(out, store.WithSource(store.NewDirSource("configs")))
//	_ = sm.Store("quality_1.0", qualities)
//	_ = sm.Store("subseq.0.0.0", positions)
//	err := sm.Close()
package store

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/arloliu/genostore/container"
	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/internal/hash"
	"github.com/arloliu/genostore/internal/options"
	"github.com/arloliu/genostore/registry"
	"github.com/arloliu/genostore/stream"
	"github.com/arloliu/genostore/transform"
)

// Engine runs and derives transform configs. *transform.Engine implements it.
type Engine interface {
	Analyze(sample []byte, c registry.Constraints) (*transform.Config, error)
	Run(cfg *transform.Config, data []byte, decompress bool) ([]byte, error)
}

var _ Engine = (*transform.Engine)(nil)

// Storeman compresses (or restores) submitted streams in parallel and writes them to a
// container in ticket order.
type Storeman struct {
	mu   sync.Mutex
	cond *sync.Cond

	pending jobQueue
	blocked blockedSet
	done    doneList
	cache   *configCache
	names   map[string]struct{}

	nextTicket  uint64 // tickets handed out by Store
	writeTicket uint64 // ticket of the next job to pack
	running     bool
	closed      bool
	err         error

	out      *container.Writer
	engine   Engine
	registry *registry.Registry
	source   Source
	mode     Mode
	verify   bool
	log      logrus.FieldLogger
	metrics  *metrics
	group    errgroup.Group
}

// New creates a Storeman writing records to w and starts its workers.
func New(w io.Writer, opts ...Option) (*Storeman, error) {
	s := defaultSettings()
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	if s.engine == nil {
		eng, err := transform.NewEngine()
		if err != nil {
			return nil, err
		}
		s.engine = eng
	}

	out, err := container.NewWriter(w, s.containerOpts...)
	if err != nil {
		return nil, err
	}

	sm := &Storeman{
		cache:    newConfigCache(),
		names:    make(map[string]struct{}),
		running:  true,
		out:      out,
		engine:   s.engine,
		registry: s.registry,
		source:   s.source,
		mode:     s.mode,
		verify:   s.verify,
		log: s.logger.WithFields(logrus.Fields{
			"session": uuid.NewString(),
			"mode":    s.mode.String(),
		}),
		metrics: newMetrics(s.registerer),
	}
	sm.cond = sync.NewCond(&sm.mu)

	for range s.workers {
		sm.group.Go(sm.work)
	}

	return sm, nil
}

// Store submits a stream. The Storeman takes ownership of data; the caller must not
// modify it afterwards.
//
// Stream names must be unique within a Storeman. Store fails once the Storeman is
// closed or a worker has failed.
func (s *Storeman) Store(name string, data []byte) error {
	if name == "" {
		return errs.ErrEmptyStreamName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errs.ErrStoremanClosed
	}
	if s.err != nil {
		return s.err
	}
	if _, ok := s.names[name]; ok {
		return fmt.Errorf("%w: %q", errs.ErrDuplicateStream, name)
	}
	s.names[name] = struct{}{}

	s.pending.push(&job{name: name, payload: data, ticket: s.nextTicket})
	s.nextTicket++
	s.metrics.bytes.WithLabelValues("in").Add(float64(len(data)))
	s.cond.Broadcast()

	return nil
}

// Wait blocks until every submitted stream has been written or a worker has failed,
// then flushes the container.
func (s *Storeman) Wait() error {
	s.mu.Lock()
	for s.writeTicket < s.nextTicket && s.err == nil {
		s.cond.Wait()
	}
	err := s.err
	s.mu.Unlock()

	if err != nil {
		return err
	}

	if err := s.out.Flush(); err != nil {
		s.mu.Lock()
		s.failLocked(err)
		s.mu.Unlock()

		return err
	}

	return nil
}

// Close waits for outstanding work, stops the workers and flushes the container.
// Calling Close more than once returns the result of the first call.
func (s *Storeman) Close() error {
	err := s.Wait()

	s.mu.Lock()
	s.closed = true
	s.running = false
	s.cond.Broadcast()
	s.mu.Unlock()

	if gerr := s.group.Wait(); err == nil {
		err = gerr
	}

	return err
}

// Configs returns the configs loaded or derived so far, keyed by canonical name.
func (s *Storeman) Configs() map[string]*transform.Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.snapshot()
}

// PackConfigs waits for outstanding work and appends every cached config to the output
// as a <name>.json record, in name order, so that a ContainerSource can restore the
// streams from the same container.
func (s *Storeman) PackConfigs() error {
	if err := s.Wait(); err != nil {
		return err
	}

	configs := s.Configs()
	for _, name := range slices.Sorted(maps.Keys(configs)) {
		data, err := configs[name].Marshal()
		if err != nil {
			return fmt.Errorf("config %q: %w", name, err)
		}
		if err := s.out.Pack(name+ConfigSuffix, data); err != nil {
			return err
		}
	}

	return s.out.Flush()
}

// Written returns the number of container bytes produced so far.
func (s *Storeman) Written() int64 {
	return s.out.Written()
}

// work is the worker loop. It returns the error that stopped this worker, if any.
func (s *Storeman) work() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.running && s.err == nil {
		// Packing the next ticket always comes first.
		if j, ok := s.done.popIf(s.writeTicket); ok {
			s.mu.Unlock()
			err := s.pack(j)
			s.mu.Lock()

			if err != nil {
				s.failLocked(err)
				return err
			}
			s.writeTicket++
			s.cond.Broadcast()

			continue
		}

		j, ok := s.pending.pop()
		if !ok {
			s.cond.Wait()
			continue
		}

		if len(j.payload) == 0 {
			s.done.insert(j)
			s.cond.Broadcast()

			continue
		}

		config := stream.ConfigName(j.name)
		if s.cache.isInProgress(config) {
			s.blocked.add(j, config)
			s.metrics.blocked.Inc()

			continue
		}

		if !s.cache.has(config) {
			s.cache.markInProgress(config)
			s.mu.Unlock()
			cfg, err := s.deriveConfig(config, j)
			s.mu.Lock()

			s.cache.unmarkInProgress(config)
			if err != nil {
				s.failLocked(err)
				return err
			}
			s.cache.put(config, cfg)

			for _, bj := range s.blocked.release(config) {
				s.pending.push(bj)
				s.metrics.blocked.Dec()
			}
			s.cond.Broadcast()
		}

		cfg := s.cache.get(config)
		s.mu.Unlock()
		err := s.process(j, cfg)
		s.mu.Lock()

		if err != nil {
			s.failLocked(err)
			return err
		}
		s.done.insert(j)
		s.cond.Broadcast()
	}

	return nil
}

// failLocked records the first failure and wakes every waiter. s.mu must be held.
func (s *Storeman) failLocked(err error) {
	if s.err != nil {
		return
	}

	s.err = err
	s.metrics.jobs.WithLabelValues(outcomeFailed).Inc()
	s.log.WithError(err).Error("storeman failed")
	s.cond.Broadcast()
}

func (s *Storeman) pack(j *job) error {
	if err := s.out.Pack(j.name, j.payload); err != nil {
		return fmt.Errorf("pack %q: %w", j.name, err)
	}

	outcome := outcomeCompressed
	switch {
	case len(j.payload) == 0:
		outcome = outcomeEmpty
	case s.mode == ModeDecompress:
		outcome = outcomeDecompressed
	}
	s.metrics.jobs.WithLabelValues(outcome).Inc()
	s.metrics.bytes.WithLabelValues("out").Add(float64(len(j.payload)))

	return nil
}

// deriveConfig loads the config of a canonical name from the source, or derives it by
// analyzing the payload of j and saves it back.
func (s *Storeman) deriveConfig(config string, j *job) (*transform.Config, error) {
	start := time.Now()
	defer func() { s.metrics.deriveSeconds.Observe(time.Since(start).Seconds()) }()

	log := s.log.WithFields(logrus.Fields{"config": config, "stream": j.name})

	if s.source != nil {
		cfg, err := s.source.Load(config)
		if err == nil {
			s.metrics.configLoads.WithLabelValues(s.source.Kind()).Inc()
			log.WithField("source", s.source.Kind()).Debug("loaded config")

			return cfg, nil
		}
		if !errors.Is(err, errs.ErrConfigNotFound) {
			return nil, fmt.Errorf("load config %q: %w", config, err)
		}
	}

	constraints, ok := s.registry.Lookup(config)
	if !ok {
		return nil, fmt.Errorf("%w: %q (stream %q)", errs.ErrUnknownStream, config, j.name)
	}

	if s.mode == ModeDecompress {
		log.Warn("config not found, falling back to default config")
		s.metrics.configLoads.WithLabelValues("default").Inc()

		return transform.DefaultConfig(constraints), nil
	}

	log.Info("deriving config")
	cfg, err := s.engine.Analyze(j.payload, constraints)
	if err != nil {
		return nil, fmt.Errorf("analyze %q (stream %q): %w", config, j.name, err)
	}
	s.metrics.derivations.WithLabelValues(config).Inc()
	log.WithFields(logrus.Fields{
		"transform":    cfg.String(),
		"fingerprint":  fmt.Sprintf("%016x", cfg.Fingerprint()),
		"analysis_sec": time.Since(start).Seconds(),
	}).Info("derived config")

	if s.source != nil {
		if err := s.source.Save(config, cfg); err != nil {
			return nil, fmt.Errorf("save config %q: %w", config, err)
		}
	}

	return cfg, nil
}

// process runs the transform over j in place.
func (s *Storeman) process(j *job, cfg *transform.Config) error {
	decompress := s.mode == ModeDecompress

	out, err := s.engine.Run(cfg, j.payload, decompress)
	if err != nil {
		return fmt.Errorf("%s %q: %w", s.mode, j.name, err)
	}

	if s.verify && !decompress {
		restored, err := s.engine.Run(cfg, out, true)
		if err != nil {
			return fmt.Errorf("verify %q: %w", j.name, err)
		}
		if hash.Digest(restored) != hash.Digest(j.payload) {
			return fmt.Errorf("%w: %q", errs.ErrVerifyMismatch, j.name)
		}
	}

	j.payload = out

	return nil
}
