// Package assets caches asset class info and inspect results in front
// of the API client. Lookups for the same key share one request, and
// only successful responses are kept.
package assets

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/loadout-tf/extension/internal/model"
)

// Backend resolves class info and inspect links remotely.
type Backend interface {
	GetAssetClassInfo(ctx context.Context, appID, classID int) (*model.ClassInfo, error)
	InspectItem(ctx context.Context, inspectLink string) (*model.EconItem, error)
}

// Cache memoizes backend lookups for the lifetime of the process.
type Cache struct {
	backend Backend
	logger  *slog.Logger
	group   singleflight.Group

	mu         sync.RWMutex
	classInfos map[int]map[int]*model.ClassInfo
	inspected  map[string]*model.EconItem
}

// NewCache creates an empty cache over the backend.
func NewCache(backend Backend, logger *slog.Logger) *Cache {
	return &Cache{
		backend:    backend,
		logger:     logger,
		classInfos: make(map[int]map[int]*model.ClassInfo),
		inspected:  make(map[string]*model.EconItem),
	}
}

// ClassInfo returns the asset class description for a listing,
// fetching it once per app and class id.
func (c *Cache) ClassInfo(ctx context.Context, appID, classID int) (*model.ClassInfo, error) {
	c.mu.RLock()
	if info, ok := c.classInfos[appID][classID]; ok {
		c.mu.RUnlock()
		return info, nil
	}
	c.mu.RUnlock()

	key := fmt.Sprintf("classinfo:%d:%d", appID, classID)
	v, err, shared := c.group.Do(key, func() (any, error) {
		info, err := c.backend.GetAssetClassInfo(ctx, appID, classID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		app, ok := c.classInfos[appID]
		if !ok {
			app = make(map[int]*model.ClassInfo)
			c.classInfos[appID] = app
		}
		app[classID] = info
		c.mu.Unlock()
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("class info lookup shared", "app", appID, "class", classID)
	}
	return v.(*model.ClassInfo), nil
}

// Inspect resolves an inspect link, fetching each link once.
func (c *Cache) Inspect(ctx context.Context, inspectLink string) (*model.EconItem, error) {
	c.mu.RLock()
	if item, ok := c.inspected[inspectLink]; ok {
		c.mu.RUnlock()
		return item, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("inspect:"+inspectLink, func() (any, error) {
		item, err := c.backend.InspectItem(ctx, inspectLink)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.inspected[inspectLink] = item
		c.mu.Unlock()
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.EconItem), nil
}

// Len reports the number of cached entries, for metrics.
func (c *Cache) Len() (classInfos, inspected int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, app := range c.classInfos {
		classInfos += len(app)
	}
	return classInfos, len(c.inspected)
}
