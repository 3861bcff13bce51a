// Package templates handles the numbered placeholders of WhatsApp template
// messages. A body such as "Hi [[1]], your order [[2]] has shipped" declares
// placeholders 1 and 2, filled with sample or real values before sending.
package templates

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	placeholderPattern = regexp.MustCompile(`\[\[(\d+)\]\]`)

	ErrMissingValue = errors.New("placeholder has no value")
)

// Placeholder is one numbered token and the value it will be replaced with.
type Placeholder struct {
	Index int    `json:"index" yaml:"index"`
	Value string `json:"value" yaml:"value"`
}

// Extract returns the placeholder indices used in body, sorted and without
// duplicates.
func Extract(body string) []int {
	matches := placeholderPattern.FindAllStringSubmatch(body, -1)
	indices := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue // overflow
		}
		indices = append(indices, n)
	}
	slices.Sort(indices)
	return slices.Compact(indices)
}

// Merge reconciles existing values with an edited body: indices still in the
// body keep their value, new ones start empty and removed ones are dropped.
func Merge(existing []Placeholder, body string) []Placeholder {
	values := make(map[int]string, len(existing))
	for _, p := range existing {
		values[p.Index] = p.Value
	}

	indices := Extract(body)
	merged := make([]Placeholder, 0, len(indices))
	for _, idx := range indices {
		merged = append(merged, Placeholder{Index: idx, Value: values[idx]})
	}
	return merged
}

// Render replaces every placeholder in body with its value. Every placeholder
// the body uses must have a non-empty value.
func Render(body string, placeholders []Placeholder) (string, error) {
	values := make(map[string]string, len(placeholders))
	for _, p := range placeholders {
		values[strconv.Itoa(p.Index)] = p.Value
	}

	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(body, func(token string) string {
		idx := placeholderPattern.FindStringSubmatch(token)[1]
		v, ok := values[idx]
		if !ok || v == "" {
			missing = append(missing, token)
			return token
		}
		return v
	})
	if len(missing) > 0 {
		return "", errors.Wrapf(ErrMissingValue, "[templates.Render] %s", strings.Join(slices.Compact(missing), ", "))
	}
	return out, nil
}
