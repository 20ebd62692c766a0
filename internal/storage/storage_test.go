package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestReadObjectReturnsContent(t *testing.T) {
	store := &memoryStore{objects: map[string][]byte{"metadata/tables.json": []byte(`[]`)}}
	data, err := ReadObject(context.Background(), store, "metadata/tables.json", 0)
	if err != nil {
		t.Fatalf("ReadObject() error = %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("data = %q", data)
	}
}

func TestReadObjectEnforcesLimit(t *testing.T) {
	store := &memoryStore{objects: map[string][]byte{"big": bytes.Repeat([]byte("x"), 32)}}
	if _, err := ReadObject(context.Background(), store, "big", 16); err == nil {
		t.Fatal("expected size limit error")
	}
}

func TestReadObjectPropagatesNotFound(t *testing.T) {
	store := &memoryStore{objects: map[string][]byte{}}
	_, err := ReadObject(context.Background(), store, "missing", 0)
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("error = %v, want ErrObjectNotFound", err)
	}
}

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Stat(_ context.Context, key string) (ObjectInfo, error) {
	data, ok := m.objects[key]
	if !ok {
		return ObjectInfo{}, ErrObjectNotFound
	}
	return ObjectInfo{Key: key, Size: int64(len(data))}, nil
}
