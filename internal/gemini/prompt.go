package gemini

import "fmt"

// SystemInstruction frames every explanation request. Shared with the
// OpenAI-compatible client so both providers answer in the same register.
const SystemInstruction = "You are a helpful misinformation detection assistant."

// ExtractTextPrompt is used for the OCR-equivalent pass over image
// attachments.
const ExtractTextPrompt = "Extract all readable text from this image. " +
	"Return only the text itself, with no commentary. " +
	"If the image contains no text, return an empty response."

// BuildExplainPrompt asks the model to classify the message and explain the
// verdict in the requested language.
func BuildExplainPrompt(text, language string) string {
	return fmt.Sprintf(`You are a fact-checking assistant. The user sent this message: %q.
1. Say if it is likely true, misleading, or a scam.
2. Give 3 short reasons why.
3. Suggest what the user should do.
Reply in %s.`, text, language)
}
