package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Cache materializes ephemeral display handles: scratch files written from
// payload bytes, addressable for the current process lifetime only. A handle
// is never reused across materializations; each one gets a fresh file name.
type Cache struct {
	dir     string
	created bool

	mu    sync.Mutex
	seq   int
	paths map[string]string
}

func New(dir string) (*Cache, error) {
	created := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "medvault-handles-")
		if err != nil {
			return nil, fmt.Errorf("create scratch dir: %w", err)
		}
		dir = tmp
		created = true
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Cache{
		dir:     dir,
		created: created,
		paths:   make(map[string]string),
	}, nil
}

// Materialize writes the payload to a fresh scratch file and returns its
// path. A still-live handle for the same id is released first.
func (c *Cache) Materialize(id string, payload []byte, mimeType string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.paths[id]; ok {
		_ = os.Remove(old)
		delete(c.paths, id)
	}

	c.seq++
	name := id + "-" + strconv.Itoa(c.seq) + extensionFor(mimeType)
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	c.paths[id] = path
	return path, nil
}

func (c *Cache) Release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if path, ok := c.paths[id]; ok {
		_ = os.Remove(path)
		delete(c.paths, id)
	}
}

func (c *Cache) ReleaseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, path := range c.paths {
		_ = os.Remove(path)
		delete(c.paths, id)
	}
}

// Close releases all handles and removes the scratch directory when the
// cache created it.
func (c *Cache) Close() {
	c.ReleaseAll()
	if c.created {
		_ = os.Remove(c.dir)
	}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}
