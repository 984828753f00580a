package plugin

import (
	"runtime/debug"
	"sort"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"gitlab.com/scanhound/hound"
)

// Container for concurrent safe access and execution
type Container struct {
	lock    *sync.RWMutex
	plugins map[string]hound.Plugin
}

// NewContainer for plugins
func NewContainer() *Container {
	return &Container{
		lock:    &sync.RWMutex{},
		plugins: make(map[string]hound.Plugin),
	}
}

// Add a plugin to our container
func (c *Container) Add(plugin hound.Plugin) {
	c.lock.Lock()
	c.plugins[plugin.ID()] = plugin
	c.lock.Unlock()
}

// Remove a plugin from our container
func (c *Container) Remove(plugin hound.Plugin) {
	c.lock.Lock()
	delete(c.plugins, plugin.ID())
	c.lock.Unlock()
}

// Len of the container
func (c *Container) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.plugins)
}

// Call every plugin allowed by filter, in plugin id order, and collect the results
func (c *Container) Call(hctx *hound.Context, resp *hound.Response, doc *goquery.Document, filter func(p hound.Plugin) bool) []*hound.Result {
	c.lock.RLock()
	plugins := make([]hound.Plugin, 0, len(c.plugins))
	for _, plugin := range c.plugins {
		plugins = append(plugins, plugin)
	}
	c.lock.RUnlock()
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].ID() < plugins[j].ID() })

	results := make([]*hound.Result, 0)
	for _, plugin := range plugins {
		if filter != nil && !filter(plugin) {
			continue
		}
		results = append(results, safeCheck(plugin, hctx, resp, doc)...)
	}
	return results
}

func safeCheck(plugin hound.Plugin, hctx *hound.Context, resp *hound.Response, doc *goquery.Document) (results []*hound.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("plugin", plugin.Name()).Str("url", resp.URL).Interface("panic", r).
				Bytes("stack", debug.Stack()).Msg("plugin panicked")
			results = nil
		}
	}()
	return plugin.Check(hctx, resp, doc)
}
