package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"github.com/arloliu/genostore/container"
	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/transform"
)

// ConfigSuffix is appended to canonical config names to form config file and config
// record names.
const ConfigSuffix = ".json"

// Source persists transform configs by canonical config name.
type Source interface {
	// Load returns the config stored under name, or an error wrapping
	// errs.ErrConfigNotFound when there is none.
	Load(name string) (*transform.Config, error)
	// Save stores cfg under name unless a config already exists there.
	Save(name string, cfg *transform.Config) error
	// Kind names the source in logs and metrics.
	Kind() string
}

// DirSource keeps one JSON file per config, <dir>/<name>.json.
type DirSource struct {
	dir string
}

var _ Source = (*DirSource)(nil)

// NewDirSource creates a source on dir. The directory is created on the first Save.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) Kind() string { return "dir" }

// Path returns the file that holds the config of name.
func (s *DirSource) Path(name string) string {
	return filepath.Join(s.dir, name+ConfigSuffix)
}

func (s *DirSource) Load(name string) (*transform.Config, error) {
	if err := checkConfigName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", errs.ErrConfigNotFound, s.Path(name))
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "read config %q", name)
	}

	cfg, err := transform.ParseConfig(data)
	if err != nil {
		return nil, pkgerrors.WithMessagef(err, "config file %s", s.Path(name))
	}

	return cfg, nil
}

// Save writes the config file exclusively; an existing file is left untouched.
func (s *DirSource) Save(name string, cfg *transform.Config) error {
	if err := checkConfigName(name); err != nil {
		return err
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return pkgerrors.Wrap(err, "create config dir")
	}

	f, err := os.OpenFile(s.Path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "create config %q", name)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return pkgerrors.Wrapf(err, "write config %q", name)
	}

	return pkgerrors.Wrapf(f.Close(), "close config %q", name)
}

// ContainerSource reads configs packed into a container as <name>.json records.
// Save is a no-op; configs reach a container through Storeman.PackConfigs.
type ContainerSource struct {
	r *container.Reader
}

var _ Source = (*ContainerSource)(nil)

// NewContainerSource creates a source on r.
func NewContainerSource(r *container.Reader) *ContainerSource {
	return &ContainerSource{r: r}
}

func (s *ContainerSource) Kind() string { return "container" }

func (s *ContainerSource) Load(name string) (*transform.Config, error) {
	record := name + ConfigSuffix
	if !s.r.Has(record) {
		return nil, fmt.Errorf("%w: record %s", errs.ErrConfigNotFound, record)
	}

	data, err := s.r.Unpack(record)
	if err != nil {
		return nil, err
	}

	cfg, err := transform.ParseConfig(data)
	if err != nil {
		return nil, pkgerrors.WithMessagef(err, "config record %s", record)
	}

	return cfg, nil
}

func (s *ContainerSource) Save(string, *transform.Config) error { return nil }

// MemorySource keeps serialized configs in memory.
type MemorySource struct {
	mu      sync.Mutex
	configs map[string][]byte
}

var _ Source = (*MemorySource)(nil)

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{configs: make(map[string][]byte)}
}

func (s *MemorySource) Kind() string { return "memory" }

func (s *MemorySource) Load(name string) (*transform.Config, error) {
	s.mu.Lock()
	data, ok := s.configs[name]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrConfigNotFound, name)
	}

	return transform.ParseConfig(data)
}

// Save stores cfg unless name already holds a config.
func (s *MemorySource) Save(name string, cfg *transform.Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.configs[name]; !ok {
		s.configs[name] = data
	}

	return nil
}

// Len returns the number of stored configs.
func (s *MemorySource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.configs)
}

func checkConfigName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid config name %q", name)
	}

	return nil
}
