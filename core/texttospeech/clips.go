package texttospeech

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultClipTTL = 10 * time.Minute

// Clips holds synthesized speech until the telephony provider fetches it.
// Expired clips are dropped lazily.
type Clips struct {
	mu    sync.Mutex
	clips map[string]clip
	ttl   time.Duration
	now   func() time.Time
}

type clip struct {
	speech  Speech
	expires time.Time
}

func NewClips(ttl time.Duration) *Clips {
	if ttl <= 0 {
		ttl = DefaultClipTTL
	}
	return &Clips{clips: make(map[string]clip), ttl: ttl, now: time.Now}
}

// Put stores speech and returns the ID it can be fetched with.
func (c *Clips) Put(speech Speech) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpired()
	id := uuid.NewString()
	c.clips[id] = clip{speech: speech, expires: c.now().Add(c.ttl)}
	return id
}

func (c *Clips) Get(id string) (Speech, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := c.clips[id]
	if !ok {
		return Speech{}, false
	}
	if !c.now().Before(stored.expires) {
		delete(c.clips, id)
		return Speech{}, false
	}
	return stored.speech, true
}

func (c *Clips) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clips)
}

func (c *Clips) evictExpired() {
	now := c.now()
	for id, stored := range c.clips {
		if !now.Before(stored.expires) {
			delete(c.clips, id)
		}
	}
}
