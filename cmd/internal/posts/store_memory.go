package posts

import (
	"context"
	"sync"
)

// MemoryStore keeps posts in a map keyed by slug.
type MemoryStore struct {
	mu    sync.RWMutex
	posts map[string]Post
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: make(map[string]Post)}
}

func (m *MemoryStore) Create(ctx context.Context, p Post) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[p.Slug]; ok {
		return Post{}, ErrConflict
	}
	m.posts[p.Slug] = p
	return p, nil
}

func (m *MemoryStore) Get(ctx context.Context, slug string) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.posts[slug]
	if !ok {
		return Post{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]Summary, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, p.Summary())
	}
	m.mu.RUnlock()

	sortSummaries(out)
	return out, nil
}

func (m *MemoryStore) Update(ctx context.Context, slug string, p Post) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.posts[slug]
	if !ok {
		return Post{}, ErrNotFound
	}
	p.Slug = slug
	p.CreatedAt = cur.CreatedAt
	m.posts[slug] = p
	return p, nil
}
