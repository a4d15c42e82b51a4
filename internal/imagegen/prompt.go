package imagegen

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const generalOption = "general"

// BuildPrompt returns the prompt forwarded upstream. A subject frames it as an
// educational concept and an output type appends presentation guidance;
// "General" or empty means no change.
func BuildPrompt(req GenerationRequest) string {
	prompt := strings.TrimSpace(req.Prompt)
	if subject := strings.TrimSpace(req.Subject); subject != "" && !strings.EqualFold(subject, generalOption) {
		prompt = fmt.Sprintf("Educational %s concept: %s", cases.Title(language.English).String(subject), prompt)
	}
	if outputType := strings.TrimSpace(req.OutputType); outputType != "" && !strings.EqualFold(outputType, generalOption) {
		prompt += fmt.Sprintf(". Create it as a professional %s, clean, structured, textbook-style and clearly presented.", outputType)
	}
	return prompt
}

// Explain renders the fixed one-sentence explanation returned with every
// image. It depends on the prompt text only.
func Explain(prompt string) string {
	subject := strings.TrimRight(strings.TrimSpace(prompt), ".!?")
	return fmt.Sprintf("This image illustrates \"%s\", turning the idea into a visual that makes the concept easier to understand and remember.", subject)
}
