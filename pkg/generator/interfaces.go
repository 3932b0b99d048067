package generator

import (
	"context"

	"github.com/shouni/itihas-kahani/pkg/domain"
	"google.golang.org/genai"
)

// StoryGenerator はビジネスロジック層（コントローラー）が利用する統合窓口です。
type StoryGenerator interface {
	GenerateStory(ctx context.Context, req domain.StoryRequest) (*domain.StoryResult, error)
}

// ContentGenerator は Gemini の GenerateContent 呼び出しを抽象化するインターフェースです。
// *genai.Models がこれを満たします。
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}
