package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/itihas-kahani/pkg/domain"
	"google.golang.org/genai"
)

// GeminiStoryGenerator は、プロンプトの組み立て、Gemini への1回のリクエスト、
// 応答の正規化を担当するジェネレーターです。内部状態を持ちません。
type GeminiStoryGenerator struct {
	aiClient ContentGenerator
	model    string
	opts     Options
}

// NewGeminiStoryGenerator は GeminiStoryGenerator を初期化するのだ。
func NewGeminiStoryGenerator(aiClient ContentGenerator, model string, opts Options) (*GeminiStoryGenerator, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient (ContentGenerator) is required")
	}
	if model == "" {
		model = DefaultModel
	}

	return &GeminiStoryGenerator{
		aiClient: aiClient,
		model:    model,
		opts:     opts,
	}, nil
}

// GenerateStory は StoryRequest を Gemini のリクエストに変換して実行し、StoryResult を返します。
// 失敗時は *GenerationError を返し、リトライは行いません。
func (g *GeminiStoryGenerator) GenerateStory(ctx context.Context, req domain.StoryRequest) (*domain.StoryResult, error) {
	contents := genai.Text(BuildContent(req))
	config := buildConfig(BuildSystemInstruction(req))

	if g.opts.Limiter != nil {
		if err := g.opts.Limiter.Wait(ctx); err != nil {
			return nil, &GenerationError{Model: g.model, Err: err}
		}
	}

	slog.InfoContext(ctx, "Geminiに物語の生成をリクエストします",
		"model", g.model,
		"style", req.Style,
		"length", req.Length,
		"language", req.Language,
	)

	resp, err := g.aiClient.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, &GenerationError{Model: g.model, Err: err}
	}

	result, err := g.parseToResult(resp)
	if err != nil {
		return nil, &GenerationError{Model: g.model, Err: err}
	}

	slog.InfoContext(ctx, "物語の生成が完了したのだ",
		"text_length", len(result.StoryText),
		"has_image", result.HasImage(),
	)
	return result, nil
}
