package sources

import "strings"

// synonyms widens a search so boards that index "golang" still surface for a
// "go" query and vice versa. Keys and values are lowercase.
var synonyms = map[string][]string{
	"go":         {"golang"},
	"golang":     {"go"},
	"python":     {"py", "django", "flask"},
	"javascript": {"js", "node", "nodejs"},
	"typescript": {"ts"},
	"developer":  {"engineer", "programmer"},
	"engineer":   {"developer"},
	"frontend":   {"front-end", "front end"},
	"backend":    {"back-end", "back end"},
	"fullstack":  {"full-stack", "full stack"},
	"devops":     {"sre", "site reliability", "infrastructure"},
	"data":       {"analytics", "analyst"},
	"machine":    {"ml", "ai"},
	"manager":    {"lead", "head"},
	"designer":   {"design", "ux", "ui"},
	"qa":         {"quality assurance", "tester"},
	"security":   {"infosec", "appsec"},
}

// ExpandKeywords lowercases the criteria keywords and appends known synonyms,
// deduplicated, original keywords first.
func ExpandKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))

	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			return
		}
		seen[kw] = true
		out = append(out, kw)
	}

	for _, kw := range keywords {
		add(kw)
	}
	for _, kw := range keywords {
		for _, syn := range synonyms[strings.ToLower(strings.TrimSpace(kw))] {
			add(syn)
		}
	}

	return out
}
