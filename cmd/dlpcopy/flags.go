package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redacter/dlpcopy/internal/matcher"
	"github.com/redacter/dlpcopy/internal/model"
)

// parseRateLimit parses the "--limit-dlp-requests" grammar (§6): a
// positive integer followed by "rps" or "rpm", e.g. "5rps", "120rpm".
func parseRateLimit(s string) (model.RateLimit, error) {
	switch {
	case strings.HasSuffix(s, "rps"):
		n, err := strconv.Atoi(strings.TrimSuffix(s, "rps"))
		if err != nil {
			return model.RateLimit{}, fmt.Errorf("invalid rate limit %q: %w", s, err)
		}
		return model.NewRateLimit(n, time.Second)
	case strings.HasSuffix(s, "rpm"):
		n, err := strconv.Atoi(strings.TrimSuffix(s, "rpm"))
		if err != nil {
			return model.RateLimit{}, fmt.Errorf("invalid rate limit %q: %w", s, err)
		}
		return model.NewRateLimit(n, time.Minute)
	default:
		return model.RateLimit{}, fmt.Errorf("rate limit %q must end in 'rps' or 'rpm'", s)
	}
}

// parseMimeOverrides parses repeated "--mime-override glob=mime" flags
// into first-match-wins rules (§4.4, SPEC_FULL supplement from
// file_mime_override.rs).
func parseMimeOverrides(raw []string) ([]matcher.MimeOverrideRule, error) {
	rules := make([]matcher.MimeOverrideRule, 0, len(raw))
	for _, r := range raw {
		glob, mime, ok := strings.Cut(r, "=")
		if !ok || glob == "" || mime == "" {
			return nil, fmt.Errorf("invalid --mime-override %q, want GLOB=MIME", r)
		}
		rules = append(rules, matcher.MimeOverrideRule{Glob: glob, Mime: mime})
	}
	return rules, nil
}

// parseImageCoords parses repeated "--image-redact-coord x1,y1,x2,y2[,text]"
// flags into the fixed rectangle set the simple image-coord redactor (§4.2)
// paints on every image it sees.
func parseImageCoords(raw []string) ([]model.TextImageCoords, error) {
	coords := make([]model.TextImageCoords, 0, len(raw))
	for _, r := range raw {
		parts := strings.SplitN(r, ",", 5)
		if len(parts) < 4 {
			return nil, fmt.Errorf("invalid --image-redact-coord %q, want x1,y1,x2,y2[,text]", r)
		}
		vals := make([]float64, 4)
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid --image-redact-coord %q: %w", r, err)
			}
			vals[i] = v
		}
		c := model.TextImageCoords{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3]}
		if len(parts) == 5 {
			c.Text = parts[4]
		}
		coords = append(coords, c)
	}
	return coords, nil
}

// parseCsvDelimiter accepts a single-character flag value and returns
// its byte, or 0 (meaning "use the default ',' ") for an empty flag.
func parseCsvDelimiter(s string) (byte, error) {
	if s == "" {
		return 0, nil
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("--csv-delimiter must be a single byte, got %q", s)
	}
	return s[0], nil
}
