package builder

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-remote-io/pkg/s3factory"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/shouni/itihas-kahani/internal/config"
	"github.com/shouni/itihas-kahani/pkg/controller"
	"github.com/shouni/itihas-kahani/pkg/generator"
)

// InitializeAIClient は Gemini API クライアントを初期化します。
// APIキーが空でもここでは失敗させず、認証エラーは生成時に表面化させます。
func InitializeAIClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return client, nil
}

// InitializeGenerator は設定に従って物語ジェネレーターを生成します。
func InitializeGenerator(cfg *config.Config, aiClient generator.ContentGenerator) (*generator.GeminiStoryGenerator, error) {
	opts := generator.Options{CompressImage: cfg.CompressImage}
	if cfg.GenerationInterval > 0 {
		opts.Limiter = rate.NewLimiter(rate.Every(cfg.GenerationInterval), 1)
	}

	gen, err := generator.NewGeminiStoryGenerator(aiClient, cfg.GeminiModel, opts)
	if err != nil {
		return nil, fmt.Errorf("ジェネレーターの初期化に失敗しました: %w", err)
	}
	return gen, nil
}

// InitializeStore はセッションストアを生成します。
func InitializeStore(cfg *config.Config, gen generator.StoryGenerator) *controller.Store {
	return controller.NewStore(gen, cfg.StoryOptions(), cfg.SessionTTL)
}

// Build は Gemini クライアントからセッションストアまでを一括で組み立てます。
func Build(cfg *config.Config) (*generator.GeminiStoryGenerator, *controller.Store, error) {
	gen, err := InitializeGenerator(cfg, NewLazyAIClient(cfg.GeminiAPIKey))
	if err != nil {
		return nil, nil, err
	}
	return gen, InitializeStore(cfg, gen), nil
}

// InitializeOutputWriter は出力先に応じた remoteio.OutputWriter を生成します。
// gs:// と s3:// ではクラウドのクライアントを初期化し、それ以外はローカルに書き込みます。
// 返される close 関数は使い終わったら必ず呼び出してください。
func InitializeOutputWriter(ctx context.Context, target string) (remoteio.OutputWriter, func() error, error) {
	noop := func() error { return nil }

	var (
		factory remoteio.IOFactory
		err     error
	)
	switch {
	case remoteio.IsGCSURI(target):
		factory, err = gcsfactory.New(ctx)
	case remoteio.IsS3URI(target):
		factory, err = s3factory.New(ctx)
	default:
		return remoteio.NewUniversalIOWriter(nil, nil), noop, nil
	}
	if err != nil {
		return nil, noop, fmt.Errorf("ストレージクライアントの初期化に失敗しました: %w", err)
	}

	closeFn := noop
	if closer, ok := factory.(io.Closer); ok {
		closeFn = closer.Close
	}
	writer, err := factory.OutputWriter()
	if err != nil {
		_ = closeFn()
		return nil, noop, fmt.Errorf("OutputWriter の生成に失敗しました: %w", err)
	}
	return writer, closeFn, nil
}

// LazyAIClient は最初の呼び出し時に genai.Client を初期化する ContentGenerator です。
// クライアント初期化の失敗も呼び出し時のエラーとして返ります。
type LazyAIClient struct {
	apiKey string

	once   sync.Once
	models *genai.Models
	err    error
}

// NewLazyAIClient は LazyAIClient を生成します。
func NewLazyAIClient(apiKey string) *LazyAIClient {
	return &LazyAIClient{apiKey: apiKey}
}

// GenerateContent は generator.ContentGenerator を満たします。
func (l *LazyAIClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	l.once.Do(func() {
		client, err := InitializeAIClient(ctx, l.apiKey)
		if err != nil {
			l.err = err
			return
		}
		l.models = client.Models
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.models.GenerateContent(ctx, model, contents, config)
}
