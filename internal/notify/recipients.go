package notify

import (
	"encoding/json"
	"strings"
	"unicode"
)

// ParseList decodes a recipient list from the encodings clients actually
// send: a JSON array of strings, a JSON string holding a comma list, or
// a bare comma-separated string.
func ParseList(raw json.RawMessage) []string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var asArray []string
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return asArray
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.Split(asString, ",")
	}

	return strings.Split(trimmed, ",")
}

// Normalize trims, lowercases and deduplicates addresses, preserving
// first-seen order. Empty entries are dropped.
func Normalize(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	result := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		normalized := strings.ToLower(strings.TrimSpace(addr))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}

// Resolve produces the final recipient set for a comment: to and cc
// merged, the ticket creator added when they are not the author, and
// the author removed. Internal comments notify nobody.
func Resolve(to, cc []string, creatorEmail, authorEmail string, internal bool) []string {
	if internal {
		return nil
	}

	merged := make([]string, 0, len(to)+len(cc)+1)
	merged = append(merged, to...)
	merged = append(merged, cc...)

	creator := strings.ToLower(strings.TrimSpace(creatorEmail))
	author := strings.ToLower(strings.TrimSpace(authorEmail))
	if creator != "" && creator != author {
		merged = append(merged, creator)
	}

	result := Normalize(merged)
	filtered := result[:0]
	for _, addr := range result {
		if addr == author {
			continue
		}
		filtered = append(filtered, addr)
	}
	return filtered
}

// DisplayName derives a human name from the local part of an email
// address: punctuation becomes spaces and each word is capitalized.
func DisplayName(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}

	local = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, local)

	words := strings.Fields(local)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	if len(words) == 0 {
		return email
	}
	return strings.Join(words, " ")
}
