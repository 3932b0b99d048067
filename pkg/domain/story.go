package domain

import "strings"

// Style は物語の語り口です。
type Style string

const (
	StyleEducational Style = "educational"
	StyleAdventurous Style = "adventurous"
	StyleMysterious  Style = "mysterious"
	StylePoetic      Style = "poetic"
)

// Length は物語の長さの目安です。
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Language は物語本文の出力言語です。
type Language string

const (
	LanguageHindi   Language = "hi"
	LanguageEnglish Language = "en"
)

// StoryRequest は1回の物語生成要求です。
// Prompt が空の場合はジェネレーター側で既定のプロンプトに置き換えられます。
type StoryRequest struct {
	Prompt   string
	Style    Style
	Length   Length
	Language Language
}

// StoryResult は生成された物語本文と挿絵です。
type StoryResult struct {
	StoryText string `json:"story_text"`
	ImageURL  string `json:"image_url,omitempty"` // data:<mime>;base64,<payload>
}

// HasImage は挿絵が含まれているかを返します。
func (r StoryResult) HasImage() bool {
	return r.ImageURL != ""
}

// ParseStyle は文字列を Style に変換します。未知の値は educational になります。
func ParseStyle(s string) Style {
	switch Style(normalize(s)) {
	case StyleAdventurous:
		return StyleAdventurous
	case StyleMysterious:
		return StyleMysterious
	case StylePoetic:
		return StylePoetic
	default:
		return StyleEducational
	}
}

// ParseLength は文字列を Length に変換します。未知の値は medium になります。
func ParseLength(s string) Length {
	switch Length(normalize(s)) {
	case LengthShort:
		return LengthShort
	case LengthLong:
		return LengthLong
	default:
		return LengthMedium
	}
}

// ParseLanguage は文字列を Language に変換します。未知の値は hi になります。
func ParseLanguage(s string) Language {
	if Language(normalize(s)) == LanguageEnglish {
		return LanguageEnglish
	}
	return LanguageHindi
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
