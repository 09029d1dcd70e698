package quote

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"quote/model"
)

const DefaultHandleName = "quote"

// HandleCache memoizes one webhook per channel. Concurrent first use of a
// channel results in a single list/create round trip shared by all callers.
type HandleCache struct {
	transport Transport
	selfID    string
	name      string

	handles map[string]model.Handle
	lock    sync.RWMutex
	group   singleflight.Group
}

func NewHandleCache(transport Transport, selfID, name string) *HandleCache {
	if len(name) == 0 {
		name = DefaultHandleName
	}
	return &HandleCache{
		transport: transport,
		selfID:    selfID,
		name:      name,
		handles:   make(map[string]model.Handle),
	}
}

// SetSelfID updates the identity handles must be owned by. The id is only
// known once the gateway session is ready.
func (c *HandleCache) SetSelfID(id string) {
	c.lock.Lock()
	c.selfID = id
	c.lock.Unlock()
}

func (c *HandleCache) Get(ctx context.Context, channelID string) (model.Handle, error) {
	c.lock.RLock()
	h, ok := c.handles[channelID]
	c.lock.RUnlock()
	if ok {
		return h, nil
	}
	v, err, _ := c.group.Do(channelID, func() (interface{}, error) {
		c.lock.RLock()
		h, ok := c.handles[channelID]
		selfID := c.selfID
		c.lock.RUnlock()
		if ok {
			return h, nil
		}
		// Callers share the result, so one caller giving up must not fail the rest.
		h, err := c.acquire(context.WithoutCancel(ctx), channelID, selfID)
		if err != nil {
			return model.Handle{}, err
		}
		c.lock.Lock()
		c.handles[channelID] = h
		c.lock.Unlock()
		return h, nil
	})
	if err != nil {
		return model.Handle{}, err
	}
	return v.(model.Handle), nil
}

func (c *HandleCache) acquire(ctx context.Context, channelID, selfID string) (model.Handle, error) {
	handles, err := c.transport.ListHandles(ctx, channelID)
	if err != nil {
		return model.Handle{}, err
	}
	for _, h := range handles {
		if len(selfID) != 0 && h.OwnerID == selfID && len(h.Token) != 0 {
			return h, nil
		}
	}
	created, err := c.transport.CreateHandle(ctx, channelID, c.name)
	if err != nil {
		return model.Handle{}, err
	}
	return *created, nil
}

// Evict forgets the channel's handle, e.g. after it was deleted remotely.
func (c *HandleCache) Evict(channelID string) {
	c.lock.Lock()
	delete(c.handles, channelID)
	c.lock.Unlock()
}

func (c *HandleCache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.handles)
}
