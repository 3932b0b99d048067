package generator

import (
	"github.com/shouni/itihas-kahani/pkg/domain"
	"github.com/shouni/itihas-kahani/pkg/imgutil"
	"google.golang.org/genai"
)

func buildConfig(systemInstruction string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
		ResponseModalities: []string{"TEXT", "IMAGE"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: ImageAspectRatio,
			ImageSize:   ImageSize,
		},
	}
}

// parseToResult は最初の候補のパーツを順に畳み込みます。
// テキストも画像も、後に現れたパーツが前のものを上書きします。
func (g *GeminiStoryGenerator) parseToResult(resp *genai.GenerateContentResponse) (*domain.StoryResult, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, errNoCandidates
	}

	result := &domain.StoryResult{}
	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				result.StoryText = part.Text
			}
			if part.InlineData != nil {
				result.ImageURL = g.toImageURL(part.InlineData)
			}
		}
	}

	if result.StoryText == "" {
		result.StoryText = PlaceholderStory
	}
	return result, nil
}

func (g *GeminiStoryGenerator) toImageURL(blob *genai.Blob) string {
	data, mimeType := blob.Data, blob.MIMEType
	if g.opts.CompressImage {
		data, mimeType = imgutil.Recompress(data, mimeType, ImageCompressionQuality)
	}
	return imgutil.ToDataURI(mimeType, data)
}
