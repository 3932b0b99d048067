package controller

import (
	"errors"

	"github.com/shouni/itihas-kahani/pkg/domain"
)

// ApologyStory は初回生成に失敗した場合に表示する本文です。
const ApologyStory = "Kshama karein, kahani sunane mein kuch takleef ho rahi hai."

var (
	// ErrInvalidTransition は現在の画面では受け付けない操作です。
	ErrInvalidTransition = errors.New("この画面では実行できない操作です")
	// ErrBusy は生成中に再度リクエストされたことを表します。
	ErrBusy = errors.New("物語を生成中です")
	// ErrStaleCompletion は既に無効になったリクエストの完了通知です。
	ErrStaleCompletion = errors.New("古いリクエストの結果です")
)

// Screen は現在表示している画面です。
type Screen string

const (
	ScreenEntry Screen = "entry"
	ScreenStory Screen = "story"
)

type operation int

const (
	opNone operation = iota
	opStart
	opRefresh
)

// StoryOptions はセッション中に固定される生成パラメータです。
type StoryOptions struct {
	Style    domain.Style    `json:"style"`
	Length   domain.Length   `json:"length"`
	Language domain.Language `json:"language"`
}

// ViewState はユーザーが今見ている画面の状態です。
// Reduce 以外から変更してはいけません。
type ViewState struct {
	Screen        Screen             `json:"screen"`
	Loading       bool               `json:"loading"`
	CurrentPrompt string             `json:"current_prompt"`
	CurrentResult domain.StoryResult `json:"current_result"`
	Options       StoryOptions       `json:"options"`
	RequestID     uint64             `json:"request_id"`

	pending operation
}

// NewViewState は entry 画面の初期状態を返します。
func NewViewState(opts StoryOptions) ViewState {
	return ViewState{Screen: ScreenEntry, Options: opts}
}

// Request は現在のプロンプトとオプションから StoryRequest を組み立てます。
func (s ViewState) Request() domain.StoryRequest {
	return domain.StoryRequest{
		Prompt:   s.CurrentPrompt,
		Style:    s.Options.Style,
		Length:   s.Options.Length,
		Language: s.Options.Language,
	}
}

// Action は ViewState を遷移させる入力です。
type Action interface {
	isAction()
}

// StartRequested は entry 画面で「Kahani Shuru Karein」が押されたことを表します。
type StartRequested struct {
	Prompt string
}

// RefreshRequested は story 画面で「Nayi Kahani」が押されたことを表します。
type RefreshRequested struct{}

// GenerationSucceeded は RequestID の生成が成功したことを表します。
type GenerationSucceeded struct {
	RequestID uint64
	Result    domain.StoryResult
}

// GenerationFailed は RequestID の生成が失敗したことを表します。
type GenerationFailed struct {
	RequestID uint64
	Err       error
}

func (StartRequested) isAction()      {}
func (RefreshRequested) isAction()    {}
func (GenerationSucceeded) isAction() {}
func (GenerationFailed) isAction()    {}

// Reduce は state に action を適用した次の状態を返します。
// 許可されていない遷移の場合はエラーと元の state をそのまま返します。
func Reduce(state ViewState, action Action) (ViewState, error) {
	switch a := action.(type) {
	case StartRequested:
		if state.Screen != ScreenEntry {
			return state, ErrInvalidTransition
		}
		next := state
		next.Screen = ScreenStory
		next.Loading = true
		next.CurrentPrompt = a.Prompt
		next.CurrentResult = domain.StoryResult{}
		next.RequestID++
		next.pending = opStart
		return next, nil

	case RefreshRequested:
		if state.Screen != ScreenStory {
			return state, ErrInvalidTransition
		}
		if state.Loading {
			return state, ErrBusy
		}
		next := state
		next.Loading = true
		next.RequestID++
		next.pending = opRefresh
		return next, nil

	case GenerationSucceeded:
		if !state.Loading || a.RequestID != state.RequestID {
			return state, ErrStaleCompletion
		}
		next := state
		next.CurrentResult = a.Result
		next.Loading = false
		next.pending = opNone
		return next, nil

	case GenerationFailed:
		if !state.Loading || a.RequestID != state.RequestID {
			return state, ErrStaleCompletion
		}
		next := state
		// refresh の失敗では直前の物語を残す
		if state.pending == opStart {
			next.CurrentResult = domain.StoryResult{StoryText: ApologyStory}
		}
		next.Loading = false
		next.pending = opNone
		return next, nil

	default:
		return state, ErrInvalidTransition
	}
}
