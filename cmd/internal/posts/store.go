package posts

import "context"

// Store persists posts. Create must reject a duplicate slug with ErrConflict
// atomically with the insert; Get and Update report ErrNotFound.
type Store interface {
	Create(ctx context.Context, p Post) (Post, error)
	Get(ctx context.Context, slug string) (Post, error)
	List(ctx context.Context) ([]Summary, error)
	Update(ctx context.Context, slug string, p Post) (Post, error)
}
