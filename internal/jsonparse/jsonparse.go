// Package jsonparse decodes JSON produced by language models, which is often
// wrapped in markdown fences or slightly malformed.
package jsonparse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Decode unmarshals content into a T. When plain unmarshaling fails the
// content is run through jsonrepair and decoded once more.
func Decode[T any](content string) (T, error) {
	var result T

	content = StripFences(content)
	if content == "" {
		return result, fmt.Errorf("jsonparse: empty content")
	}

	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, fmt.Errorf("jsonparse: decode %T: %w (repair failed: %v)", result, err, repairErr)
	}

	var retry T
	if err := json.Unmarshal([]byte(repaired), &retry); err != nil {
		return result, fmt.Errorf("jsonparse: decode repaired %T: %w", result, err)
	}

	return retry, nil
}

// StripFences removes a surrounding ```json ... ``` block and whitespace.
func StripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}
