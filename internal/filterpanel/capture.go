package filterpanel

import "github.com/pders01/shelf/internal/slider"

// capture routes every pointer motion and release to one slider for the
// length of a drag, wherever the pointer is on screen. It is acquired on
// press and released on drag end, on facet removal and on Close.
type capture struct {
	key    string
	target *slider.Model
}

func (c *capture) acquire(key string, target *slider.Model) {
	c.release()
	c.key = key
	c.target = target
}

func (c *capture) release() {
	if c.target != nil {
		c.target.Release()
	}
	c.key = ""
	c.target = nil
}

func (c *capture) held() bool { return c.target != nil }
