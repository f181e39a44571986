package storage

import (
	"bytes"
	"context"
	"path"
)

// Saver writes generated files into a storage under a key prefix.
type Saver struct {
	storage Storage
	prefix  string
}

func NewSaver(s Storage, prefix string) *Saver {
	return &Saver{storage: s, prefix: prefix}
}

func (s *Saver) Save(ctx context.Context, name string, contentType string, data []byte) error {
	return s.storage.Upload(ctx, path.Join(s.prefix, name), bytes.NewReader(data), contentType)
}
