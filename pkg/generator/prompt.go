package generator

import (
	"fmt"
	"strings"

	"github.com/shouni/itihas-kahani/pkg/domain"
	"github.com/shouni/itihas-kahani/pkg/utils"
)

const (
	personaHindi   = "You are a master historian and storyteller. Your stories are vivid, educational, and written in beautiful Hindi (Devanagari script)."
	personaEnglish = "You are a master historian and storyteller. Your stories are vivid, educational, and written in clear, beautiful English."

	imageInstruction = "After the story, write a short description in English of one key scene from it, suitable as a prompt for an image-generation model, and create that illustration."
)

type lengthClause struct {
	clause string
	words  string
}

var styleClauses = map[domain.Style]string{
	domain.StyleAdventurous: "thrilling, full of adventure",
	domain.StyleMysterious:  "enigmatic, full of suspense",
	domain.StylePoetic:      "lyrical, evocative, poetic flair",
	domain.StyleEducational: "highly informative, engaging for learning",
}

var lengthClauses = map[domain.Length]lengthClause{
	domain.LengthShort:  {clause: "concise", words: "100-150"},
	domain.LengthMedium: {clause: "moderate", words: "200-300"},
	domain.LengthLong:   {clause: "detailed, comprehensive", words: "400-500"},
}

// styleClause は未知のスタイルを educational として扱います。
func styleClause(s domain.Style) string {
	if c, ok := styleClauses[s]; ok {
		return c
	}
	return styleClauses[domain.StyleEducational]
}

// lengthClauseFor は未知の長さを medium として扱います。
func lengthClauseFor(l domain.Length) lengthClause {
	if c, ok := lengthClauses[l]; ok {
		return c
	}
	return lengthClauses[domain.LengthMedium]
}

// BuildSystemInstruction はペルソナ、スタイル、長さの指示を連結したシステム指示を返します。
func BuildSystemInstruction(req domain.StoryRequest) string {
	var sb strings.Builder

	if req.Language == domain.LanguageEnglish {
		sb.WriteString(personaEnglish)
	} else {
		sb.WriteString(personaHindi)
	}

	sb.WriteString(fmt.Sprintf(" Style: the story should be %s.", styleClause(req.Style)))

	lc := lengthClauseFor(req.Length)
	sb.WriteString(fmt.Sprintf(" Length: keep it %s, about %s words.", lc.clause, lc.words))

	return sb.String()
}

// BuildContent はユーザープロンプトと挿絵の指示を組み合わせた本文を返します。
func BuildContent(req domain.StoryRequest) string {
	prompt := utils.DefaultIfBlank(req.Prompt, DefaultPrompt)
	return prompt + "\n\n" + imageInstruction
}
