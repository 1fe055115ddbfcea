package clients

import (
	"sort"
	"sync"

	"github.com/jrsteele09/feedback-mcp-gateway/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewInMemoryRepo creates a new in-memory client repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		clients: make(map[string]*Client),
	}
}

func (r *InMemoryRepo) Upsert(client *Client) error {
	if client == nil || client.ID == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "[clients.Upsert] client id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ID] = client.clone()
	return nil
}

func (r *InMemoryRepo) Get(clientID string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[clientID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "[clients.Get] %q", clientID)
	}
	return c.clone(), nil
}

func (r *InMemoryRepo) List() ([]*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		list = append(list, c.clone())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}
