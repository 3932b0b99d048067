package controller

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shouni/itihas-kahani/pkg/generator"
)

// Store はセッションを保持するレジストリです。
// 最後にアクセスされてから ttl が経過したセッションは破棄されます。
type Store struct {
	// mu は取得時の期限延長と削除・置き換えが交差しないようにするためのロックです。
	mu        sync.Mutex
	sessions  *cache.Cache
	generator generator.StoryGenerator
	defaults  StoryOptions
}

// NewStore は go-cache を使ったセッションストアを作成します。
func NewStore(gen generator.StoryGenerator, defaults StoryOptions, ttl time.Duration) *Store {
	sessions := cache.New(ttl, ttl)
	sessions.OnEvicted(func(id string, _ interface{}) {
		slog.Debug("セッションを破棄しました", "session", id)
	})

	return &Store{
		sessions:  sessions,
		generator: gen,
		defaults:  defaults,
	}
}

// Create は既定のオプションで新しいセッションを作成します。
func (st *Store) Create() *Session {
	return st.CreateWithOptions(st.defaults)
}

// CreateWithOptions は指定したオプションで新しいセッションを作成します。
func (st *Store) CreateWithOptions(opts StoryOptions) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.add(opts)
}

func (st *Store) add(opts StoryOptions) *Session {
	s := NewSession(uuid.NewString(), st.generator, opts)
	st.sessions.SetDefault(s.ID(), s)
	return s
}

// Get はセッションを取得し、有効期限を延長します。
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	v, found := st.sessions.Get(id)
	if !found {
		return nil, false
	}
	s, ok := v.(*Session)
	if !ok {
		slog.Warn("セッションデータが不正な型です", "session", id)
		st.sessions.Delete(id)
		return nil, false
	}
	st.sessions.SetDefault(id, s)
	return s, true
}

// Replace は entry 画面のまま何も開始していないセッションを、
// 指定したオプションの新しいセッションに置き換えます。
// 置き換えられたセッションはそれ以降 start も refresh も受け付けません。
// old が既に開始済み、または置き換え済みの場合は ErrInvalidTransition を返します。
func (st *Store) Replace(old *Session, opts StoryOptions) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if v, found := st.sessions.Get(old.ID()); !found || v != old {
		return nil, ErrInvalidTransition
	}
	if !old.retire() {
		return nil, ErrInvalidTransition
	}
	st.sessions.Delete(old.ID())
	return st.add(opts), nil
}

// Delete はセッションを破棄します。
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions.Delete(id)
}

// Count は保持しているセッション数を返します（期限切れで未回収のものを含みます）。
func (st *Store) Count() int {
	return st.sessions.ItemCount()
}

// Defaults は新規セッションに使われるオプションを返します。
func (st *Store) Defaults() StoryOptions {
	return st.defaults
}
