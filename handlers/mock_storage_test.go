package handlers

import (
	"context"
	"io"
	"sync"
)

type mockStorage struct {
	mu sync.Mutex

	UploadFn func(folder, filename, contentType string) (string, error)
	ImportFn func(folder, imageURL string) (string, error)
	DeleteFn func(objectPath string) error

	UploadCallCount int
	ImportCalls     []string
	DeleteCalls     []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{}
}

func (m *mockStorage) Upload(_ context.Context, folder string, r io.Reader, filename, contentType string) (string, error) {
	io.Copy(io.Discard, r)

	m.mu.Lock()
	m.UploadCallCount++
	m.mu.Unlock()
	if m.UploadFn != nil {
		return m.UploadFn(folder, filename, contentType)
	}
	return "https://storage.googleapis.com/test-bucket/" + folder + "/test_" + filename, nil
}

func (m *mockStorage) ImportFromURL(_ context.Context, folder, imageURL string) (string, error) {
	m.mu.Lock()
	m.ImportCalls = append(m.ImportCalls, imageURL)
	m.mu.Unlock()
	if m.ImportFn != nil {
		return m.ImportFn(folder, imageURL)
	}
	return "https://storage.googleapis.com/test-bucket/" + folder + "/imported.jpg", nil
}

func (m *mockStorage) Delete(_ context.Context, objectPath string) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, objectPath)
	m.mu.Unlock()
	if m.DeleteFn != nil {
		return m.DeleteFn(objectPath)
	}
	return nil
}
