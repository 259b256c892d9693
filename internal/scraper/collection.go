package scraper

import (
	"sync"

	"github.com/jimezsa/leadcli/internal/models"
)

// Collection is the append-only lead set shared by the page tasks of one crawl.
type Collection struct {
	mu    sync.Mutex
	leads []models.Lead
}

func (c *Collection) Append(leads ...models.Lead) {
	if len(leads) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leads = append(c.leads, leads...)
}

func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.leads)
}

// Leads returns a copy in append order.
func (c *Collection) Leads() []models.Lead {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Lead, len(c.leads))
	copy(out, c.leads)
	return out
}
