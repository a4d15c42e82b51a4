package imagegen

import (
	"encoding/json"
	"math"
	"strings"
)

type rawRequest struct {
	Prompt     json.RawMessage `json:"prompt"`
	Width      json.RawMessage `json:"width"`
	Height     json.RawMessage `json:"height"`
	Steps      json.RawMessage `json:"steps"`
	Subject    json.RawMessage `json:"subject"`
	OutputType json.RawMessage `json:"outputType"`
}

// ParseRequest validates a raw request body. The prompt must be a JSON string
// that is non-empty after trimming; width, height and steps fall back to their
// defaults unless they are positive integers.
func ParseRequest(body []byte) (GenerationRequest, error) {
	var raw rawRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return GenerationRequest{}, invalidRequest(msgInvalidBody, err)
	}
	var prompt string
	if len(raw.Prompt) == 0 || json.Unmarshal(raw.Prompt, &prompt) != nil {
		return GenerationRequest{}, invalidRequest(msgPromptRequired, nil)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return GenerationRequest{}, invalidRequest(msgPromptRequired, nil)
	}
	return GenerationRequest{
		Prompt:     prompt,
		Width:      positiveInt(raw.Width, DefaultWidth),
		Height:     positiveInt(raw.Height, DefaultHeight),
		Steps:      positiveInt(raw.Steps, DefaultSteps),
		Subject:    optionalString(raw.Subject),
		OutputType: optionalString(raw.OutputType),
	}, nil
}

func positiveInt(raw json.RawMessage, fallback int) int {
	if len(raw) == 0 {
		return fallback
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return fallback
	}
	if f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return fallback
	}
	return int(f)
}

func optionalString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
