package controller

import (
	"context"
	"sync"

	"github.com/shouni/itihas-kahani/pkg/domain"
)

// mockGenerator は generator.StoryGenerator のテスト用モックなのだ。
type mockGenerator struct {
	mu       sync.Mutex
	calls    int
	requests []domain.StoryRequest

	// release が nil でなければ、値を受け取るまで応答を保留するのだ
	release      chan struct{}
	generateFunc func(ctx context.Context, req domain.StoryRequest) (*domain.StoryResult, error)
}

func (m *mockGenerator) GenerateStory(ctx context.Context, req domain.StoryRequest) (*domain.StoryResult, error) {
	m.mu.Lock()
	m.calls++
	m.requests = append(m.requests, req)
	release, fn := m.release, m.generateFunc
	m.mu.Unlock()

	if release != nil {
		<-release
	}
	if fn != nil {
		return fn(ctx, req)
	}
	return &domain.StoryResult{StoryText: "story: " + req.Prompt}, nil
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockGenerator) setFunc(fn func(ctx context.Context, req domain.StoryRequest) (*domain.StoryResult, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateFunc = fn
}
