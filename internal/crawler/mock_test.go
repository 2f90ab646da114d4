package crawler

import (
	"time"
)

// stubFetcher serves canned HTML per URL and records every request.
type stubFetcher struct {
	pages map[string]string
	err   error
	calls []string
}

var _ PageFetcher = (*stubFetcher)(nil)

func newStubFetcher() *stubFetcher {
	return &stubFetcher{pages: make(map[string]string)}
}

func (f *stubFetcher) Fetch(url string) (string, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return "", f.err
	}
	html, ok := f.pages[url]
	if !ok {
		return "", &mockError{message: "no page for " + url}
	}
	return html, nil
}

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, &mockError{message: "cache miss"}
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

type mockError struct {
	message string
}

func (e *mockError) Error() string {
	return e.message
}
