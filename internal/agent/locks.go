package agent

import "sync"

// conversationLocks serializes turns per conversation. Messages for
// different clients proceed in parallel; two messages from the same client
// are handled strictly one after the other.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{locks: map[string]*sync.Mutex{}}
}

func (c *conversationLocks) get(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

func (c *conversationLocks) Lock(key string) {
	c.get(key).Lock()
}

func (c *conversationLocks) Unlock(key string) {
	c.get(key).Unlock()
}
