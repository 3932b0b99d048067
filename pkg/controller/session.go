package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shouni/itihas-kahani/pkg/domain"
	"github.com/shouni/itihas-kahani/pkg/generator"
)

var errEmptyResult = errors.New("ジェネレーターが空の結果を返しました")

// Session は1人のユーザーの ViewState を保持し、ジェネレーターの呼び出しを調停します。
// 同時に実行中の生成リクエストは常に1件以下です。
type Session struct {
	id        string
	generator generator.StoryGenerator

	mu       sync.RWMutex
	state    ViewState
	inFlight atomic.Bool
	retired  bool // Store.Replace で置き換えられたら以降の操作を受け付けない
}

// NewSession は entry 画面から始まるセッションを作成します。
func NewSession(id string, gen generator.StoryGenerator, opts StoryOptions) *Session {
	return &Session{
		id:        id,
		generator: gen,
		state:     NewViewState(opts),
	}
}

// ID はセッションIDを返します。
func (s *Session) ID() string {
	return s.id
}

// State は現在の ViewState のスナップショットを返します。
func (s *Session) State() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Start は entry 画面から物語の生成を開始し、完了まで待ちます。
// 生成の失敗は画面上のメッセージに変換され、エラーとしては返りません。
func (s *Session) Start(ctx context.Context, prompt string) error {
	done, err := s.StartAsync(ctx, prompt)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// StartAsync は状態を loading に遷移させてから生成をバックグラウンドで開始します。
// 返されるチャネルは生成結果が ViewState に反映された時点で close されます。
func (s *Session) StartAsync(ctx context.Context, prompt string) (<-chan struct{}, error) {
	return s.dispatch(ctx, StartRequested{Prompt: prompt})
}

// Refresh は同じプロンプトで物語を作り直し、完了まで待ちます。
// 生成中に呼ばれた場合は何もせず ErrBusy を返します。
func (s *Session) Refresh(ctx context.Context) error {
	done, err := s.RefreshAsync(ctx)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// RefreshAsync は Refresh の非同期版です。
func (s *Session) RefreshAsync(ctx context.Context) (<-chan struct{}, error) {
	return s.dispatch(ctx, RefreshRequested{})
}

func (s *Session) dispatch(ctx context.Context, action Action) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.retired {
		s.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	next, err := Reduce(s.state, action)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.state = next
	req, id := next.Request(), next.RequestID
	s.mu.Unlock()

	slog.InfoContext(ctx, "物語の生成を開始します", "session", s.id, "request_id", id, "prompt", req.Prompt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.complete(ctx, id, s.generate(ctx, req))
	}()
	return done, nil
}

// retire はまだ何も始まっていない entry 画面のセッションを無効化します。
// 既に開始済みか、無効化済みなら false を返します。
func (s *Session) retire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired || s.state.Screen != ScreenEntry || s.inFlight.Load() {
		return false
	}
	s.retired = true
	return true
}

// generate はジェネレーターを呼び出し、結果を完了アクションに変換します。
func (s *Session) generate(ctx context.Context, req domain.StoryRequest) (action Action) {
	defer func() {
		if r := recover(); r != nil {
			action = GenerationFailed{Err: fmt.Errorf("ジェネレーターがパニックしました: %v", r)}
		}
	}()

	result, err := s.generator.GenerateStory(ctx, req)
	if err == nil && result == nil {
		err = errEmptyResult
	}
	if err != nil {
		return GenerationFailed{Err: err}
	}
	return GenerationSucceeded{Result: *result}
}

func (s *Session) complete(ctx context.Context, id uint64, action Action) {
	switch a := action.(type) {
	case GenerationSucceeded:
		a.RequestID = id
		action = a
	case GenerationFailed:
		a.RequestID = id
		action = a
		slog.ErrorContext(ctx, "物語の生成に失敗しました", "session", s.id, "request_id", id, "error", a.Err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Reduce(s.state, action)
	if err != nil {
		slog.WarnContext(ctx, "生成結果を反映できませんでした", "session", s.id, "request_id", id, "error", err)
	} else {
		s.state = next
	}
	s.inFlight.Store(false)
}
