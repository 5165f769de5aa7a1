package parser

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

var (
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9 ()\-./]{7,}[0-9]`)

	// sectionHeadings mark the start of a skills block in most resume layouts
	skillsHeading = regexp.MustCompile(`(?i)^\s*(technical\s+)?(skills|technologies|tech\s+stack)\s*:?\s*$`)
	inlineSkills  = regexp.MustCompile(`(?i)^\s*(technical\s+)?(skills|technologies|tech\s+stack)\s*:\s*(.+)$`)
)

// knownTitles is matched case-insensitively against resume lines to recover
// job titles without an LLM.
var knownTitles = []string{
	"software engineer", "senior software engineer", "staff software engineer",
	"backend engineer", "frontend engineer", "full stack engineer", "fullstack engineer",
	"software developer", "backend developer", "frontend developer", "web developer",
	"devops engineer", "site reliability engineer", "platform engineer",
	"data engineer", "data scientist", "machine learning engineer",
	"engineering manager", "tech lead", "product manager", "qa engineer",
}

// HeuristicExtractor recovers a usable profile from resume text with plain
// pattern matching. It is deliberately conservative: better a sparse profile
// than an invented one.
type HeuristicExtractor struct{}

// NewHeuristicExtractor creates the regex-based fallback extractor
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

// Extract scans the resume line by line for contact details, a skills
// section, and recognizable job titles.
func (he *HeuristicExtractor) Extract(_ context.Context, text string) (*models.Profile, error) {
	lines := strings.Split(text, "\n")

	profile := &models.Profile{}
	profile.Contact.Email = utils.ExtractEmail(text)
	if m := phonePattern.FindString(text); m != "" {
		profile.Contact.Phone = strings.TrimSpace(m)
	}
	profile.Contact.Name = guessName(lines)
	profile.Skills = extractSkills(lines)
	profile.Titles = extractTitles(lines)

	if profile.Contact.Email == "" && len(profile.Skills) == 0 {
		return nil, fmt.Errorf("no contact email or skills found in resume text")
	}
	return profile, nil
}

// guessName takes the first short line that is not an address or heading.
// Resumes almost always lead with the candidate's name.
func guessName(lines []string) string {
	for _, line := range lines[:min(5, len(lines))] {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "@") || phonePattern.MatchString(line) {
			continue
		}
		words := strings.Fields(line)
		if len(words) < 2 || len(words) > 4 {
			continue
		}
		return line
	}
	return ""
}

func extractSkills(lines []string) []string {
	var raw string
	for i, line := range lines {
		if m := inlineSkills.FindStringSubmatch(line); m != nil {
			raw = m[3]
			break
		}
		if skillsHeading.MatchString(line) {
			// Collect until the next blank line or heading
			var block []string
			for _, next := range lines[i+1:] {
				next = strings.TrimSpace(next)
				if next == "" || strings.HasSuffix(next, ":") {
					break
				}
				block = append(block, next)
			}
			raw = strings.Join(block, ", ")
			break
		}
	}
	if raw == "" {
		return nil
	}

	seen := make(map[string]bool)
	var skills []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == '•'
	}) {
		skill := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "-"))
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if seen[key] {
			continue
		}
		seen[key] = true
		skills = append(skills, skill)
	}
	return skills
}

func extractTitles(lines []string) []string {
	seen := make(map[string]bool)
	var titles []string
	for _, line := range lines {
		lower := strings.ToLower(line)
		// Longest match wins so "senior software engineer" does not also
		// record "software engineer"
		var best string
		for _, title := range knownTitles {
			if strings.Contains(lower, title) && len(title) > len(best) {
				best = title
			}
		}
		if best != "" && !seen[best] {
			seen[best] = true
			titles = append(titles, best)
		}
	}
	return titles
}
