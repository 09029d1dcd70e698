package activity

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

type User struct {
	ID         string `json:"id"`
	Tag        string `json:"tag"`
	QuoteCount int    `json:"quoteCount"`
}

type Repository interface {
	Find(ctx context.Context, id string) (*User, error)
	Save(ctx context.Context, user User) error
}

// FileRepository keeps every user in memory and rewrites the whole JSON file
// on each save.
type FileRepository struct {
	path  string
	users map[string]User
	lock  sync.Mutex
}

// OpenFileRepository loads path. A missing file starts an empty store.
func OpenFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{path: path, users: make(map[string]User)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if len(data) == 0 {
		return r, nil
	}
	if err = json.Unmarshal(data, &r.users); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	for id, u := range r.users {
		u.ID = id
		r.users[id] = u
	}
	return r, nil
}

func (r *FileRepository) Find(_ context.Context, id string) (*User, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *FileRepository) Save(_ context.Context, user User) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	prev, existed := r.users[user.ID]
	r.users[user.ID] = user
	if err := r.write(); err != nil {
		if existed {
			r.users[user.ID] = prev
		} else {
			delete(r.users, user.ID)
		}
		return err
	}
	return nil
}

func (r *FileRepository) write() error {
	data, err := json.MarshalIndent(r.users, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode users")
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	return errors.Wrapf(os.Rename(tmp, r.path), "replace %s", r.path)
}
