package blobstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	prefix  string
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
	etag        string
}

func newMemoryStore(prefix string) Store {
	return &memoryStore{
		prefix:  prefix,
		objects: make(map[string]memoryObject),
	}
}

func (m *memoryStore) Put(_ context.Context, key string, payload []byte, contentType string) error {
	logicalKey, err := cleanKey(key)
	if err != nil {
		return err
	}

	sum := md5.Sum(payload)
	data := make([]byte, len(payload))
	copy(data, payload)

	m.mu.Lock()
	m.objects[withPrefix(m.prefix, logicalKey)] = memoryObject{
		data:        data,
		contentType: strings.TrimSpace(contentType),
		etag:        hex.EncodeToString(sum[:]),
	}
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (Object, error) {
	logicalKey, err := cleanKey(key)
	if err != nil {
		return Object{}, err
	}

	m.mu.RLock()
	obj, ok := m.objects[withPrefix(m.prefix, logicalKey)]
	m.mu.RUnlock()
	if !ok {
		return Object{}, fmt.Errorf("%w: %s", ErrNotFound, logicalKey)
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return Object{
		Key:         logicalKey,
		Data:        data,
		ContentType: obj.contentType,
		ETag:        obj.etag,
	}, nil
}

func (m *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	logicalKey, err := cleanKey(key)
	if err != nil {
		return false, err
	}

	m.mu.RLock()
	_, ok := m.objects[withPrefix(m.prefix, logicalKey)]
	m.mu.RUnlock()
	return ok, nil
}
