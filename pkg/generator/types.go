package generator

import (
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

const (
	DefaultModel            = "gemini-3-pro-image-preview"
	ImageAspectRatio        = "16:9"
	ImageSize               = "1K"
	ImageCompressionQuality = 75

	// DefaultPrompt はユーザーがプロンプトを入力しなかった場合に使われます。
	DefaultPrompt = "Write a short, engaging story about ancient Indian history (Prachin Bharat ka Itihas) in Hindi. Make it feel like a narration. Start with a welcoming tone."
	// PlaceholderStory は応答にテキストパーツが無かった場合の本文です。
	PlaceholderStory = "Kahani load nahi ho saki. Kripya phir se koshish karein."
)

var errNoCandidates = errors.New("Geminiからの有効な応答がありませんでした")

// Options は GeminiStoryGenerator の任意設定です。
type Options struct {
	// Limiter が指定されている場合、API 呼び出しの前に待機します。
	Limiter *rate.Limiter
	// CompressImage が true の場合、挿絵をJPEGに再圧縮してから data URI にします。
	CompressImage bool
}

// GenerationError は外部モデル呼び出しの失敗を表します。
// 部分的な結果は持ちません。
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("物語の生成に失敗しました (model: %s): %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
