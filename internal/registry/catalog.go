package registry

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"notice_relay/internal/domain"
	"notice_relay/internal/source/board"
)

// Entry is one source as declared in the catalog.
type Entry struct {
	ID        string          `yaml:"id" json:"id"`
	Name      string          `yaml:"name" json:"name"`
	URL       string          `yaml:"url" json:"url"`
	Kind      Kind            `yaml:"kind" json:"kind"`
	Policy    domain.Policy   `yaml:"policy" json:"policy"`
	Interval  time.Duration   `yaml:"interval" json:"interval"`
	Base      string          `yaml:"base" json:"base"`
	Selectors board.Selectors `yaml:"selectors" json:"selectors"`
}

type catalogFile struct {
	Sources []Entry `yaml:"sources" json:"sources"`
}

// Catalog loads source entries from somewhere.
type Catalog interface {
	Load(ctx context.Context) ([]Entry, error)
}

// FileCatalog reads a YAML catalog from disk.
type FileCatalog struct {
	Path string
}

func (c FileCatalog) Load(_ context.Context) ([]Entry, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parseCatalog(data)
}

// Getter is the part of source.Client used to fetch remote catalogs.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// HTTPCatalog fetches a YAML or JSON catalog over HTTP.
type HTTPCatalog struct {
	URL    string
	Client Getter
}

func (c HTTPCatalog) Load(ctx context.Context) ([]Entry, error) {
	data, err := c.Client.Get(ctx, c.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) ([]Entry, error) {
	expanded := os.ExpandEnv(string(data))

	var f catalogFile
	if err := yaml.Unmarshal([]byte(expanded), &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return f.Sources, nil
}
