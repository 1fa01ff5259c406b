package save

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStore is a read-through, write-through cache in front of another Store.
// Entries expire after the configured TTL.
type CachedStore struct {
	next  Store
	chars *expirable.LRU[string, CharData]
	halls *expirable.LRU[string, HallData]
}

// NewCachedStore wraps next with LRU caches of the given size and TTL.
//
// Precondition: next must be non-nil; size must be > 0.
func NewCachedStore(next Store, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		chars: expirable.NewLRU[string, CharData](size, nil, ttl),
		halls: expirable.NewLRU[string, HallData](size, nil, ttl),
	}
}

func (c *CachedStore) LoadChar(ctx context.Context, id string) (CharData, error) {
	if data, ok := c.chars.Get(id); ok {
		return clone(data)
	}
	data, err := c.next.LoadChar(ctx, id)
	if err != nil {
		return CharData{}, err
	}
	c.putChar(id, data)
	return data, nil
}

func (c *CachedStore) SaveChar(ctx context.Context, data CharData, id string) error {
	if err := c.next.SaveChar(ctx, data, id); err != nil {
		c.chars.Remove(id)
		return err
	}
	c.putChar(id, data)
	return nil
}

func (c *CachedStore) DeleteChar(ctx context.Context, id string) error {
	c.chars.Remove(id)
	return c.next.DeleteChar(ctx, id)
}

func (c *CachedStore) LoadHall(ctx context.Context, id string) (HallData, error) {
	if data, ok := c.halls.Get(id); ok {
		return clone(data)
	}
	data, err := c.next.LoadHall(ctx, id)
	if err != nil {
		return HallData{}, err
	}
	c.putHall(id, data)
	return data, nil
}

func (c *CachedStore) SaveHall(ctx context.Context, data HallData, id string) error {
	if err := c.next.SaveHall(ctx, data, id); err != nil {
		c.halls.Remove(id)
		return err
	}
	c.putHall(id, data)
	return nil
}

func (c *CachedStore) ClearAll(ctx context.Context) error {
	c.chars.Purge()
	c.halls.Purge()
	return c.next.ClearAll(ctx)
}

// Len returns the number of cached characters and halls.
func (c *CachedStore) Len() (chars, halls int) {
	return c.chars.Len(), c.halls.Len()
}

func (c *CachedStore) putChar(id string, data CharData) {
	cp, err := clone(data)
	if err != nil {
		c.chars.Remove(id)
		return
	}
	c.chars.Add(id, cp)
}

func (c *CachedStore) putHall(id string, data HallData) {
	cp, err := clone(data)
	if err != nil {
		c.halls.Remove(id)
		return
	}
	c.halls.Add(id, cp)
}
