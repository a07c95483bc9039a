// Package langdetect picks the language the reply should be written in.
package langdetect

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Reply language labels handed to the explanation prompt.
const (
	English = "English"
	Hindi   = "Hindi"
)

// ReplyLanguage classifies the message text. Only Hindi is distinguished;
// everything else, including empty or undetectable text, defaults to
// English. Detection can never fail the pipeline.
func ReplyLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return English
	}
	info := whatlanggo.Detect(text)
	if info.Lang == whatlanggo.Hin {
		return Hindi
	}
	return English
}
