package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/genostore/container"
	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/registry"
	"github.com/arloliu/genostore/stream"
	"github.com/arloliu/genostore/transform"
)

// probeEngine wraps a real engine, counts calls and can stall or skew them.
type probeEngine struct {
	inner *transform.Engine

	analyzes atomic.Int64
	runs     atomic.Int64

	started chan struct{}                   // signalled when Analyze starts, if set
	gate    chan struct{}                   // Analyze waits until closed, if set
	delay   func(data []byte) time.Duration // sleeps before Run, if set
	corrupt bool                            // damages decoded output
}

func newProbeEngine(t *testing.T) *probeEngine {
	t.Helper()

	eng, err := transform.NewEngine()
	require.NoError(t, err)

	return &probeEngine{inner: eng}
}

func (p *probeEngine) Analyze(sample []byte, c registry.Constraints) (*transform.Config, error) {
	p.analyzes.Add(1)
	if p.started != nil {
		select {
		case p.started <- struct{}{}:
		default:
		}
	}
	if p.gate != nil {
		<-p.gate
	}

	return p.inner.Analyze(sample, c)
}

func (p *probeEngine) Run(cfg *transform.Config, data []byte, decompress bool) ([]byte, error) {
	p.runs.Add(1)
	if p.delay != nil {
		time.Sleep(p.delay(data))
	}

	out, err := p.inner.Run(cfg, data, decompress)
	if err == nil && decompress && p.corrupt && len(out) > 0 {
		out[len(out)-1] ^= 0xFF
	}

	return out, err
}

type testStream struct {
	name string
	data []byte
}

func qualityValues(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, 7))
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(33 + r.IntN(8) + r.IntN(32)*r.IntN(2))
	}

	return out
}

func positions(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, 11))
	out := make([]byte, 0, n*4)
	pos := uint32(r.IntN(1000))
	for range n {
		pos += uint32(r.IntN(300))
		out = binary.LittleEndian.AppendUint32(out, pos)
	}

	return out
}

func smallSymbols(n int, seed uint64, maxValue int) []byte {
	r := rand.New(rand.NewPCG(seed, 13))
	out := make([]byte, n)
	for i := range out {
		if r.IntN(4) == 0 {
			out[i] = byte(r.IntN(maxValue + 1))
		}
	}

	return out
}

// mixedStreams builds n streams spread over four config classes. Every tenth stream
// is empty.
func mixedStreams(n int) []testStream {
	streams := make([]testStream, 0, n)
	for i := range n {
		seed := uint64(i + 1)
		size := 64 + (i*37)%700

		var s testStream
		switch i % 4 {
		case 0:
			s = testStream{stream.QualityName(i), qualityValues(size, seed)}
		case 1:
			s = testStream{stream.SubseqName(i, 1, 0), smallSymbols(size, seed, 3)}
		case 2:
			s = testStream{stream.IDName(i, 0, 3), positions(size/4+1, seed)}
		default:
			s = testStream{stream.SubseqName(i, 0, 0), positions(size/4+1, seed)}
		}
		if i%10 == 9 {
			s.data = nil
		}
		streams = append(streams, s)
	}

	return streams
}

func quietLogger() logrus.FieldLogger {
	logger, _ := logtest.NewNullLogger()
	return logger
}

func newTestStoreman(t *testing.T, w *bytes.Buffer, opts ...Option) *Storeman {
	t.Helper()

	sm, err := New(w, append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)

	return sm
}

func callWithin(t *testing.T, d time.Duration, fn func() error) error {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-time.After(d):
		t.Fatalf("call did not return within %s", d)
		return nil
	}
}

func openContainer(t *testing.T, data []byte) *container.Reader {
	t.Helper()

	r, err := container.Open(bytes.NewReader(data))
	require.NoError(t, err)

	return r
}

func storeAll(t *testing.T, sm *Storeman, streams []testStream) {
	t.Helper()

	for _, s := range streams {
		require.NoError(t, sm.Store(s.name, s.data))
	}
}

// restore decompresses every stream record of a compressed container through a
// decompressing Storeman fed by the container's own config records.
func restore(t *testing.T, compressed []byte, opts ...Option) *container.Reader {
	t.Helper()

	r := openContainer(t, compressed)

	var out bytes.Buffer
	opts = append([]Option{WithMode(ModeDecompress), WithSource(NewContainerSource(r))}, opts...)
	sm := newTestStoreman(t, &out, opts...)

	for _, e := range r.Entries() {
		if strings.HasSuffix(e.Name, ConfigSuffix) {
			continue
		}
		payload, err := r.Unpack(e.Name)
		require.NoError(t, err)
		require.NoError(t, sm.Store(e.Name, payload))
	}
	require.NoError(t, callWithin(t, 30*time.Second, sm.Close))

	return openContainer(t, out.Bytes())
}

func requireSamePayload(t *testing.T, want, got []byte, name string) {
	t.Helper()

	if len(want) == 0 {
		require.Empty(t, got, name)
		return
	}
	require.Equal(t, want, got, name)
}

func TestStoreman_TicketOrder(t *testing.T) {
	for _, workers := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			probe := newProbeEngine(t)
			// Run time varies with the payload, so jobs finish out of order.
			probe.delay = func(data []byte) time.Duration {
				return time.Duration(len(data)%5) * time.Millisecond
			}

			streams := mixedStreams(60)

			var buf bytes.Buffer
			sm := newTestStoreman(t, &buf, WithWorkers(workers), WithEngine(probe))
			storeAll(t, sm, streams)
			require.NoError(t, callWithin(t, 30*time.Second, sm.Close))

			r := openContainer(t, buf.Bytes())
			entries := r.Entries()
			require.Len(t, entries, len(streams))
			for i, e := range entries {
				require.Equal(t, streams[i].name, e.Name, "record %d", i)
			}
		})
	}
}

func TestStoreman_RoundTrip(t *testing.T) {
	streams := mixedStreams(48)
	streams = append(streams, testStream{"cp.bin", []byte("chromosome 1 header, chromosome 2 header")})

	reg, err := registry.Default().With(map[string]registry.Constraints{
		"cp.bin": {MaxValue: 255, WordSize: 1},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	sm := newTestStoreman(t, &buf, WithWorkers(4), WithRegistry(reg), WithVerify(true))
	storeAll(t, sm, streams)
	require.NoError(t, sm.PackConfigs())
	require.NoError(t, callWithin(t, 30*time.Second, sm.Close))

	configs := sm.Configs()
	require.Len(t, configs, 5)
	packed := openContainer(t, buf.Bytes())
	for name := range configs {
		require.True(t, packed.Has(name+ConfigSuffix), name)
	}

	restored := restore(t, buf.Bytes(), WithWorkers(3), WithRegistry(reg))
	require.Equal(t, len(streams), restored.Len())

	for i, e := range restored.Entries() {
		require.Equal(t, streams[i].name, e.Name)

		got, err := restored.Unpack(e.Name)
		require.NoError(t, err)
		requireSamePayload(t, streams[i].data, got, e.Name)
	}
}

func TestStoreman_SingleAnalysisPerConfig(t *testing.T) {
	probe := newProbeEngine(t)

	var buf bytes.Buffer
	sm := newTestStoreman(t, &buf, WithWorkers(8), WithEngine(probe))

	for i := range 64 {
		require.NoError(t, sm.Store(stream.QualityName(i), qualityValues(256, uint64(i))))
	}
	for i := range 16 {
		require.NoError(t, sm.Store(stream.SubseqName(i, 1, 0), smallSymbols(128, uint64(i), 3)))
	}
	require.NoError(t, callWithin(t, 30*time.Second, sm.Close))

	require.Equal(t, int64(2), probe.analyzes.Load())
	require.Equal(t, float64(1), testutil.ToFloat64(sm.metrics.derivations.WithLabelValues("quality_1")))
	require.Equal(t, float64(1), testutil.ToFloat64(sm.metrics.derivations.WithLabelValues("subseq.1")))
	require.Equal(t, float64(80), testutil.ToFloat64(sm.metrics.jobs.WithLabelValues(outcomeCompressed)))
	require.Equal(t, int64(80), probe.runs.Load())
}

func TestStoreman_BlockedJobsResume(t *testing.T) {
	probe := newProbeEngine(t)
	probe.started = make(chan struct{}, 1)
	probe.gate = make(chan struct{})

	var buf bytes.Buffer
	sm := newTestStoreman(t, &buf, WithWorkers(4), WithEngine(probe))

	streams := []testStream{
		{stream.QualityName(0), qualityValues(512, 1)},
		{stream.QualityName(1), qualityValues(512, 2)},
		{stream.QualityName(2), qualityValues(512, 3)},
	}
	storeAll(t, sm, streams)

	select {
	case <-probe.started:
	case <-time.After(10 * time.Second):
		t.Fatal("analysis never started")
	}

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(sm.metrics.blocked) == 2
	}, 10*time.Second, 5*time.Millisecond)
	require.Empty(t, sm.Configs(), "config must not be visible while derivation runs")

	close(probe.gate)
	require.NoError(t, callWithin(t, 10*time.Second, sm.Close))

	require.Equal(t, int64(1), probe.analyzes.Load(), "released jobs must reuse the derived config")
	require.Zero(t, testutil.ToFloat64(sm.metrics.blocked))

	r := openContainer(t, buf.Bytes())
	require.Equal(t, 3, r.Len())
	for i, e := range r.Entries() {
		require.Equal(t, streams[i].name, e.Name)
		require.NotZero(t, e.Length)
	}
}

func TestStoreman_EmptyPayload(t *testing.T) {
	probe := newProbeEngine(t)

	var buf bytes.Buffer
	sm := newTestStoreman(t, &buf, WithWorkers(2), WithEngine(probe))

	// Empty streams never need a config, so even names without constraints pass.
	require.NoError(t, sm.Store("quality_1.0", nil))
	require.NoError(t, sm.Store("cp.bin", []byte{}))
	require.NoError(t, callWithin(t, 10*time.Second, sm.Close))

	require.Zero(t, probe.analyzes.Load())
	require.Zero(t, probe.runs.Load())
	require.Empty(t, sm.Configs())
	require.Equal(t, float64(2), testutil.ToFloat64(sm.metrics.jobs.WithLabelValues(outcomeEmpty)))

	require.Equal(t, (8+11+8)+(8+6+8), buf.Len())

	r := openContainer(t, buf.Bytes())
	for _, e := range r.Entries() {
		require.Zero(t, e.Length, e.Name)
	}
}

func TestStoreman_StoreErrors(t *testing.T) {
	var buf bytes.Buffer
	sm := newTestStoreman(t, &buf, WithWorkers(1))

	require.ErrorIs(t, sm.Store("", []byte{1}), errs.ErrEmptyStreamName)
	require.NoError(t, sm.Store("quality_1.0", qualityValues(32, 1)))
	require.ErrorIs(t, sm.Store("quality_1.0", qualityValues(32, 2)), errs.ErrDuplicateStream)

	require.NoError(t, callWithin(t, 10*time.Second, sm.Close))
	require.ErrorIs(t, sm.Store("quality_1.1", qualityValues(32, 3)), errs.ErrStoremanClosed)

	r := openContainer(t, buf.Bytes())
	require.Equal(t, 1, r.Len())
}

func TestStoreman_WorkerFailures(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		stream  testStream
		wantErr error
	}{
		{
			name:    "unknown stream",
			stream:  testStream{"cp.bin", []byte("header")},
			wantErr: errs.ErrUnknownStream,
		},
		{
			name:    "unknown stream decompress",
			mode:    ModeDecompress,
			stream:  testStream{"cp.bin", []byte("header")},
			wantErr: errs.ErrUnknownStream,
		},
		{
			name:    "misaligned stream",
			stream:  testStream{stream.SubseqName(0, 0, 0), []byte{1, 2, 3}},
			wantErr: errs.ErrMisalignedStream,
		},
		{
			name:    "symbol out of range",
			stream:  testStream{stream.SubseqName(0, 2, 0), []byte{0, 1, 2}},
			wantErr: errs.ErrSymbolOutOfRange,
		},
		{
			name:    "corrupt frame",
			mode:    ModeDecompress,
			stream:  testStream{stream.QualityName(0), []byte{0xFF, 0xFF, 0xFF}},
			wantErr: errs.ErrCorruptFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sm := newTestStoreman(t, &buf, WithWorkers(2), WithMode(tt.mode))

			require.NoError(t, sm.Store(tt.stream.name, tt.stream.data))

			err := callWithin(t, 10*time.Second, sm.Wait)
			require.ErrorIs(t, err, tt.wantErr)

			require.ErrorIs(t, sm.Store("quality_1.9", qualityValues(8, 1)), tt.wantErr)
			require.ErrorIs(t, callWithin(t, 10*time.Second, sm.Close), tt.wantErr)
			require.Equal(t, float64(1), testutil.ToFloat64(sm.metrics.jobs.WithLabelValues(outcomeFailed)))
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestStoreman_SinkFailure(t *testing.T) {
	sm, err := New(failingWriter{}, WithLogger(quietLogger()), WithWorkers(2))
	require.NoError(t, err)

	require.NoError(t, sm.Store("quality_1.0", qualityValues(128, 1)))

	err = callWithin(t, 10*time.Second, sm.Close)
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
}

func TestStoreman_Verify(t *testing.T) {
	t.Run("mismatch", func(t *testing.T) {
		probe := newProbeEngine(t)
		probe.corrupt = true

		var buf bytes.Buffer
		sm := newTestStoreman(t, &buf, WithEngine(probe), WithVerify(true))
		require.NoError(t, sm.Store("quality_1.0", qualityValues(256, 1)))

		require.ErrorIs(t, callWithin(t, 10*time.Second, sm.Close), errs.ErrVerifyMismatch)
	})

	t.Run("match", func(t *testing.T) {
		probe := newProbeEngine(t)

		var buf bytes.Buffer
		sm := newTestStoreman(t, &buf, WithEngine(probe), WithVerify(true))
		require.NoError(t, sm.Store("quality_1.0", qualityValues(256, 1)))
		require.NoError(t, callWithin(t, 10*time.Second, sm.Close))

		// One compression and one verifying decompression.
		require.Equal(t, int64(2), probe.runs.Load())
	})
}

func TestStoreman_DecompressDefaultConfig(t *testing.T) {
	eng, err := transform.NewEngine()
	require.NoError(t, err)

	data := qualityValues(1024, 5)
	c, _ := registry.Default().Lookup("quality_1")
	compressed, err := eng.Run(transform.DefaultConfig(c), data, false)
	require.NoError(t, err)

	logger, hook := logtest.NewNullLogger()

	var buf bytes.Buffer
	sm, err := New(&buf, WithMode(ModeDecompress), WithLogger(logger), WithSource(NewMemorySource()))
	require.NoError(t, err)
	require.NoError(t, sm.Store("quality_1.3", compressed))
	require.NoError(t, callWithin(t, 10*time.Second, sm.Close))

	got, err := openContainer(t, buf.Bytes()).Unpack("quality_1.3")
	require.NoError(t, err)
	require.Equal(t, data, got)

	require.Equal(t, float64(1), testutil.ToFloat64(sm.metrics.configLoads.WithLabelValues("default")))
	require.Equal(t, float64(1), testutil.ToFloat64(sm.metrics.jobs.WithLabelValues(outcomeDecompressed)))

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["config"] == "quality_1" {
			warned = true
		}
	}
	require.True(t, warned, "fallback to the default config must be logged")
}

func TestStoreman_DirSourcePersistence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "configs")

	first := newProbeEngine(t)
	var buf1 bytes.Buffer
	sm := newTestStoreman(t, &buf1, WithEngine(first), WithSource(NewDirSource(dir)))
	require.NoError(t, sm.Store("quality_1.0", qualityValues(512, 1)))
	require.NoError(t, sm.Store("subseq.0.1.0", smallSymbols(512, 1, 3)))
	require.NoError(t, callWithin(t, 10*time.Second, sm.Close))

	require.Equal(t, int64(2), first.analyzes.Load())
	require.FileExists(t, filepath.Join(dir, "quality_1.json"))
	require.FileExists(t, filepath.Join(dir, "subseq.1.json"))

	second := newProbeEngine(t)
	var buf2 bytes.Buffer
	sm = newTestStoreman(t, &buf2, WithEngine(second), WithSource(NewDirSource(dir)))
	require.NoError(t, sm.Store("quality_1.7", qualityValues(512, 2)))
	require.NoError(t, callWithin(t, 10*time.Second, sm.Close))

	require.Zero(t, second.analyzes.Load())
	require.Equal(t, float64(1), testutil.ToFloat64(sm.metrics.configLoads.WithLabelValues("dir")))
	require.Zero(t, testutil.ToFloat64(sm.metrics.derivations.WithLabelValues("quality_1")))

	// The second run must decode with the persisted config.
	src := NewDirSource(dir)
	cfg, err := src.Load("quality_1")
	require.NoError(t, err)

	payload, err := openContainer(t, buf2.Bytes()).Unpack("quality_1.7")
	require.NoError(t, err)
	got, err := second.inner.Run(cfg, payload, true)
	require.NoError(t, err)
	require.Equal(t, qualityValues(512, 2), got)
}

func TestStoreman_Registerer(t *testing.T) {
	reg := prometheus.NewRegistry()

	var buf bytes.Buffer
	sm := newTestStoreman(t, &buf, WithRegisterer(reg))
	require.NoError(t, sm.Store("quality_1.0", qualityValues(64, 1)))
	require.NoError(t, callWithin(t, 10*time.Second, sm.Close))

	count, err := testutil.GatherAndCount(reg, "genostore_jobs_total", "genostore_config_derivations_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// A second Storeman on the same registerer collides.
	require.Panics(t, func() { _, _ = New(&buf, WithRegisterer(reg)) })
}

func TestStoreman_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero workers", WithWorkers(0)},
		{"bad mode", WithMode(Mode(9))},
		{"nil registry", WithRegistry(nil)},
		{"nil engine", WithEngine(nil)},
		{"nil logger", WithLogger(nil)},
		{"nil byte order", WithContainerOptions(container.WithByteOrder(nil))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&bytes.Buffer{}, tt.opt)
			require.Error(t, err)
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeCompress, false},
		{"compress", ModeCompress, false},
		{" Decompress ", ModeDecompress, false},
		{"restore", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got)
		require.Equal(t, tt.want.String(), got.String())
	}
}
