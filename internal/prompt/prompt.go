// Package prompt fills user-editable prompt templates with row data.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Placeholder tokens recognized in a template.
const (
	QuestionToken = "{question}"
	AnswerToken   = "{answer}"
)

// ErrPlaceholderInInput is returned by CheckInput when row text itself
// contains a placeholder token.
var ErrPlaceholderInInput = errors.New("row text contains a placeholder token")

// Render replaces every {question} and {answer} in template with the given
// values. Substitution is a single pass over the template: placeholder tokens
// that appear inside question or answer are copied through verbatim and never
// expanded.
func Render(template, question, answer string) string {
	r := strings.NewReplacer(QuestionToken, question, AnswerToken, answer)
	return r.Replace(template)
}

// Placeholders counts the occurrences of each token in template.
func Placeholders(template string) (questions, answers int) {
	return strings.Count(template, QuestionToken), strings.Count(template, AnswerToken)
}

// CheckInput reports whether question or answer would leak a literal
// placeholder token into the rendered prompt.
func CheckInput(question, answer string) error {
	for _, field := range []struct{ name, value string }{
		{"question", question},
		{"answer", answer},
	} {
		if strings.Contains(field.value, QuestionToken) || strings.Contains(field.value, AnswerToken) {
			return fmt.Errorf("%s: %w", field.name, ErrPlaceholderInInput)
		}
	}
	return nil
}

// Load reads a template from path. An empty path yields DefaultTemplate.
func Load(path string) (string, error) {
	if path == "" {
		return DefaultTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(data), nil
}
