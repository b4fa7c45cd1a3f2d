// Package catalog holds the read-only list of media items served by the
// gateway and the chunk arithmetic over them.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophstream/internal/common"
	"gopkg.in/yaml.v3"
)

// ChunkSize is the number of bytes served per download request.
const ChunkSize = 4 * 1024

type Item struct {
	ID              string `yaml:"id" json:"id"`
	Name            string `yaml:"name" json:"name"`
	Album           string `yaml:"album" json:"album"`
	Description     string `yaml:"description" json:"description"`
	DurationSeconds int    `yaml:"duration" json:"duration"`
	FileName        string `yaml:"file_name" json:"file_name"`
	FileSize        int64  `yaml:"file_size" json:"file_size"`
}

// Chunks returns ceil(FileSize / ChunkSize).
func (i Item) Chunks() int64 {
	return (i.FileSize + ChunkSize - 1) / ChunkSize
}

// ChunkRange returns the byte range of chunk index. The last chunk may be
// shorter than ChunkSize.
func (i Item) ChunkRange(index int64) (offset, length int64, err error) {
	if index < 0 || index >= i.Chunks() {
		return 0, 0, fmt.Errorf("%w: %d not in [0, %d)", common.ErrInvalidChunkIndex, index, i.Chunks())
	}
	offset = index * ChunkSize
	length = min(int64(ChunkSize), i.FileSize-offset)
	return offset, length, nil
}

type manifest struct {
	Items []Item `yaml:"items"`
}

type Catalog struct {
	items []Item
	byID  map[string]int
}

// Default returns the built-in single-track catalog.
func Default() *Catalog {
	c, _ := New([]Item{{
		ID:              "898a08080d1840793122b7e118b27a95d117ebce",
		Name:            "Sunny Afternoon - Upbeat Ukulele Background Music",
		Album:           "Upbeat Ukulele Background Music",
		Description:     "Nicolai Heidlas Music: http://soundcloud.com/nicolai-heidlas",
		DurationSeconds: 3*60 + 33,
		FileName:        "898a08080d1840793122b7e118b27a95d117ebce.mp3",
		FileSize:        3407202,
	}})
	return c
}

// New validates items and builds a catalog preserving their order.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(items))}
	for _, it := range items {
		if it.ID == "" {
			return nil, errors.New("catalog item without id")
		}
		if it.FileName == "" || it.FileSize <= 0 {
			return nil, fmt.Errorf("catalog item %s: file_name and positive file_size required", it.ID)
		}
		if _, dup := c.byID[it.ID]; dup {
			return nil, fmt.Errorf("catalog item %s listed twice", it.ID)
		}
		c.byID[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	return c, nil
}

// Parse reads a YAML manifest with a top-level "items" list.
func Parse(data []byte) (*Catalog, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return New(m.Items)
}

// Load reads the manifest at path, or returns Default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Items returns a copy of the catalog entries in manifest order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Lookup(id string) (Item, error) {
	idx, ok := c.byID[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", common.ErrMediaNotFound, id)
	}
	return c.items[idx], nil
}

func (c *Catalog) Len() int {
	return len(c.items)
}
