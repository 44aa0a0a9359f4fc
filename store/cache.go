package store

import (
	"fmt"
	"maps"

	"github.com/arloliu/genostore/transform"
)

// configCache maps canonical config names to configs and tracks the names whose config
// is being derived. It is not safe for concurrent use; the Storeman guards it with its
// mutex.
type configCache struct {
	configs    map[string]*transform.Config
	inProgress map[string]struct{}
}

func newConfigCache() *configCache {
	return &configCache{
		configs:    make(map[string]*transform.Config),
		inProgress: make(map[string]struct{}),
	}
}

func (c *configCache) has(name string) bool {
	_, ok := c.configs[name]
	return ok
}

// get returns the config for name and panics when it is absent, which only happens
// when the scheduler skipped the has check.
func (c *configCache) get(name string) *transform.Config {
	cfg, ok := c.configs[name]
	if !ok {
		panic(fmt.Sprintf("config %q not cached", name))
	}

	return cfg
}

// put stores cfg under name. A later put for the same name wins.
func (c *configCache) put(name string, cfg *transform.Config) {
	c.configs[name] = cfg
}

func (c *configCache) markInProgress(name string) {
	c.inProgress[name] = struct{}{}
}

func (c *configCache) unmarkInProgress(name string) {
	delete(c.inProgress, name)
}

func (c *configCache) isInProgress(name string) bool {
	_, ok := c.inProgress[name]
	return ok
}

// snapshot returns a copy of the cached configs.
func (c *configCache) snapshot() map[string]*transform.Config {
	return maps.Clone(c.configs)
}
