// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// jsonBlock matches the outermost object or array in a response that may be
// wrapped in prose or code fences.
var jsonBlock = regexp.MustCompile(`\{[\s\S]*\}|\[[\s\S]*\]`)

// ParseJSON extracts the first JSON object or array from text and decodes
// it into dst.
func ParseJSON(text string, dst any) error {
	m := jsonBlock.FindString(text)
	if m == "" {
		return fmt.Errorf("ai: no JSON found in response")
	}
	if err := json.Unmarshal([]byte(m), dst); err != nil {
		return fmt.Errorf("ai: parse JSON response: %w", err)
	}
	return nil
}

// EstimateTokens is a rough token count: four characters per token,
// rounded up.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
