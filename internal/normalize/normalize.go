// Package normalize canonicalizes free-form user tokens against fixed allowlists.
package normalize

import "strings"

// Token lowercases and trims s and collapses whitespace runs into a single underscore.
func Token(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

// MatchOne returns the allowlist member whose normalized form equals the normalized input.
func MatchOne(input string, allowed []string) (string, bool) {
	key := Token(input)
	if key == "" {
		return "", false
	}
	for _, v := range allowed {
		if Token(v) == key {
			return v, true
		}
	}
	return "", false
}

// MatchMany filters inputs to allowlist members, dropping duplicates by normalized
// form and keeping the order of first occurrence. Returned values are the allowlist's
// own spelling.
func MatchMany(inputs []string, allowed []string) []string {
	lookup := make(map[string]string, len(allowed))
	for _, v := range allowed {
		lookup[Token(v)] = v
	}
	seen := make(map[string]struct{}, len(inputs))
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		key := Token(in)
		canonical, ok := lookup[key]
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

var genderSynonyms = map[string]string{
	"m":         "male",
	"f":         "female",
	"male":      "male",
	"female":    "female",
	"man":       "male",
	"woman":     "female",
	"masculine": "male",
	"feminine":  "female",
}

// Gender maps common spellings to male/female. Any other non-empty value that is not
// prefer_not_to_say becomes "other"; the policy is lenient on purpose.
func Gender(s string) (string, bool) {
	key := Token(s)
	if key == "" {
		return "", false
	}
	if g, ok := genderSynonyms[key]; ok {
		return g, true
	}
	if key == "prefer_not_to_say" {
		return key, true
	}
	return "other", true
}
