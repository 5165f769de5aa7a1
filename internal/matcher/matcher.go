package matcher

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"autoapply/internal/logging"
	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

const (
	// Posting descriptions get truncated before embedding; boards ship
	// multi-page HTML and the tail rarely changes the match.
	maxDescriptionChars = 2000
	maxRawResumeChars   = 1000
)

// Matcher ranks postings against a profile. The score is semantic cosine
// similarity scaled to 0..100 plus a bounded keyword bonus, clamped to 100.
type Matcher struct {
	embedder        Embedder
	keywordBonusCap float64
	logger          logging.Logger
}

// New creates a matcher over the given embedder. keywordBonusCap bounds the
// lexical bonus so it can break ties but never outvote the semantic score.
func New(embedder Embedder, keywordBonusCap float64) *Matcher {
	if keywordBonusCap < 0 {
		keywordBonusCap = 0
	}
	return &Matcher{
		embedder:        embedder,
		keywordBonusCap: keywordBonusCap,
		logger:          logging.GetGlobalLogger(),
	}
}

// Rank scores every posting against the profile and returns them ordered by
// descending score. The sort is stable: equal scores keep aggregator order.
// An empty posting list is not an error.
func (m *Matcher) Rank(ctx context.Context, profile *models.Profile, keywords []string, postings []models.Posting) ([]models.RankedPosting, error) {
	if len(postings) == 0 {
		return []models.RankedPosting{}, nil
	}

	texts := make([]string, 0, len(postings)+1)
	texts = append(texts, profileText(profile))
	for i := range postings {
		texts = append(texts, postingText(&postings[i]))
	}

	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	profileVec := vectors[0]
	ranked := make([]models.RankedPosting, len(postings))
	for i := range postings {
		semantic := cosineSimilarity(profileVec, vectors[i+1]) * 100
		if semantic < 0 {
			semantic = 0
		}
		if semantic > 100 {
			semantic = 100
		}

		score := semantic + m.keywordBonus(&postings[i], keywords)
		if score > 100 {
			score = 100
		}

		ranked[i] = models.RankedPosting{
			Posting:    postings[i],
			MatchScore: math.Round(score*100) / 100,
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].MatchScore > ranked[b].MatchScore
	})

	return ranked, nil
}

// keywordBonus awards a share of the cap proportional to how many criteria
// keywords appear in the posting title.
func (m *Matcher) keywordBonus(p *models.Posting, keywords []string) float64 {
	if len(keywords) == 0 || m.keywordBonusCap == 0 {
		return 0
	}

	title := strings.ToLower(p.Title)
	hits := 0
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw == "" {
			continue
		}
		if strings.Contains(title, kw) {
			hits++
		}
	}

	return m.keywordBonusCap * float64(hits) / float64(len(keywords))
}

func profileText(profile *models.Profile) string {
	var b strings.Builder
	b.WriteString(strings.Join(profile.Skills, " "))
	b.WriteString(" ")
	b.WriteString(strings.Join(profile.Titles, " "))
	b.WriteString(" ")
	b.WriteString(strings.Join(profile.Experience, " "))
	if profile.RawText != "" {
		b.WriteString(" ")
		b.WriteString(utils.Truncate(profile.RawText, maxRawResumeChars))
	}
	return strings.TrimSpace(b.String())
}

func postingText(p *models.Posting) string {
	desc := utils.Truncate(stripHTML(p.Description), maxDescriptionChars)
	return strings.TrimSpace(p.Title + " " + strings.Join(p.Tags, " ") + " " + desc)
}

// stripHTML extracts visible text from board descriptions, which are usually
// HTML fragments. Plain text passes through unchanged.
func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(s)))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
