// Package static serves directory records from a YAML file on disk.
package static

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"jamalekbot/pkg/directory"
)

type fileSchema struct {
	Businesses []directory.Record `yaml:"businesses"`
}

// Directory re-reads its file on every call so edits are picked up without a restart.
type Directory struct {
	path string
	log  *slog.Logger
}

var _ directory.Directory = (*Directory)(nil)

func New(path string, log *slog.Logger) (*Directory, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("directory.static_file is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Directory{path: trimmed, log: log.With("component", "directory.static")}, nil
}

func (d *Directory) Search(ctx context.Context, keyword string) ([]directory.Record, error) {
	records, err := d.load(ctx)
	if err != nil {
		return nil, err
	}

	matches := directory.Filter(records, keyword)
	d.log.Debug("Directory search", "keyword", keyword, "matches", len(matches))
	return matches, nil
}

func (d *Directory) GetOne(ctx context.Context, idOrName string) (*directory.Record, error) {
	records, err := d.load(ctx)
	if err != nil {
		return nil, err
	}

	return directory.Find(records, idOrName), nil
}

func (d *Directory) load(ctx context.Context) ([]directory.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}

	var file fileSchema
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse directory file: %w", err)
	}

	return file.Businesses, nil
}
