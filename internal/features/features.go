// Package features normalizes the project feature list.
//
// Older rows stored features as one string, either comma separated
// ("blog, seo") or concatenated with no delimiter at all ("contact-formblogseo").
// ParseFeatures recovers a list from both shapes. New writes always store a
// proper array; the parser is used by the migrate-features command and as a
// read fallback for rows that have not been migrated yet.
package features

import (
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Known lists every feature keyword the intake form has ever offered.
var Known = []string{
	"contact-form",
	"blog",
	"seo",
	"ecommerce",
	"e-commerce",
	"cms",
	"analytics",
	"booking",
	"booking-system",
	"payments",
	"payment-processing",
	"user-accounts",
	"user-auth",
	"newsletter",
	"gallery",
	"portfolio",
	"social-media",
	"social-integration",
	"live-chat",
	"chat",
	"multilingual",
	"maps",
	"search",
	"admin-dashboard",
	"api-integration",
	"custom-design",
	"responsive",
	"hosting",
	"maintenance",
	"copywriting",
	"logo-design",
	"branding",
}

// byLength is Known sorted longest first so that "booking-system" wins over "booking".
var byLength = func() []string {
	out := slices.Clone(Known)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}()

// ParseFeatures splits a legacy feature string into keywords.
// Each comma-separated part is matched greedily, longest known keyword first,
// and whatever cannot be matched is kept verbatim as one trailing entry.
func ParseFeatures(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if slices.Contains(Known, part) {
			result = append(result, part)
			continue
		}
		result = append(result, splitConcatenated(part)...)
	}
	return result
}

func splitConcatenated(s string) []string {
	var found []string
	remainder := s

	for _, keyword := range byLength {
		for {
			idx := strings.Index(remainder, keyword)
			if idx < 0 {
				break
			}
			found = append(found, keyword)
			remainder = remainder[:idx] + remainder[idx+len(keyword):]
		}
	}

	// keep the order the keywords appeared in the source string
	sort.SliceStable(found, func(i, j int) bool {
		return firstIndex(s, found[i]) < firstIndex(s, found[j])
	})

	if rest := strings.Trim(remainder, " -_"); rest != "" {
		found = append(found, rest)
	}
	return found
}

func firstIndex(s, keyword string) int {
	return strings.Index(s, keyword)
}

// Normalize prefers the stored array and falls back to parsing raw.
func Normalize(stored []string, raw string) []string {
	if len(stored) > 0 {
		return stored
	}
	return ParseFeatures(raw)
}

// Label turns "contact-form" into "Contact Form" for display.
func Label(feature string) string {
	words := strings.FieldsFunc(feature, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if w == "seo" || w == "cms" || w == "api" {
			words[i] = strings.ToUpper(w)
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
