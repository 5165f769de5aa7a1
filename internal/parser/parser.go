package parser

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"autoapply/internal/logging"
	"autoapply/pkg/models"
)

// UnsupportedFormatError is returned for uploads the parser cannot read.
type UnsupportedFormatError struct {
	MimeType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported resume format: %s", e.MimeType)
}

// ParseError is returned when the resume text could not be turned into a
// profile by any extractor.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("resume parse failed: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Extractor turns raw resume text into a structured profile.
type Extractor interface {
	Extract(ctx context.Context, text string) (*models.Profile, error)
}

// Parser parses uploaded resumes. When an LLM extractor is configured it is
// tried first; the heuristic extractor backstops it so an upstream outage
// never blocks profile creation.
type Parser struct {
	llm       Extractor
	heuristic Extractor
	logger    logging.Logger
}

// New creates a resume parser. llm may be nil, in which case only the
// heuristic extractor runs.
func New(llm Extractor) *Parser {
	return &Parser{
		llm:       llm,
		heuristic: NewHeuristicExtractor(),
		logger:    logging.GetGlobalLogger(),
	}
}

// ParseResume extracts a profile from an uploaded resume. Only plain-text
// uploads are accepted; binary formats must be converted before upload.
func (p *Parser) ParseResume(ctx context.Context, data []byte, mimeType string) (*models.Profile, error) {
	if !isTextMime(mimeType) || !utf8.Valid(data) {
		return nil, &UnsupportedFormatError{MimeType: mimeType}
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, &ParseError{Err: fmt.Errorf("resume is empty")}
	}

	if p.llm != nil {
		profile, err := p.llm.Extract(ctx, text)
		if err == nil {
			profile.RawText = text
			return profile, nil
		}
		p.logger.Warn("LLM resume extraction failed, falling back to heuristics", map[string]interface{}{
			"error": err.Error(),
		})
	}

	profile, err := p.heuristic.Extract(ctx, text)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	profile.RawText = text
	return profile, nil
}

func isTextMime(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case mt == "", mt == "text/plain", mt == "text/markdown", mt == "application/octet-stream":
		return true
	case strings.HasPrefix(mt, "text/"):
		return true
	}
	return false
}
