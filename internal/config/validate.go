package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/revcollect/internal/review"
)

// Validate checks the settings required by mode: "collect", "batch", "runs"
// or "serve". All problems are reported together.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required for driver %q", c.Store.Driver)
		}
	case "none":
		if mode == "runs" || mode == "serve" {
			add("store.driver %q has no run log to read", c.Store.Driver)
		}
	default:
		add("store.driver must be sqlite, postgres or none (got %q)", c.Store.Driver)
	}

	switch mode {
	case "collect":
		checkBounds(add, "collect", c.Collect.SrcMin, c.Collect.SrcMax, c.Collect.TgtMin, c.Collect.TgtMax, c.Collect.Limit)
	case "batch":
		checkBounds(add, "collect", c.Collect.SrcMin, c.Collect.SrcMax, c.Collect.TgtMin, c.Collect.TgtMax, c.Collect.Limit)
		if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 64 {
			add("batch.max_concurrent must be between 1 and 64 (got %d)", c.Batch.MaxConcurrent)
		}
		if len(c.Batch.Jobs) == 0 {
			add("batch.jobs is empty")
		}
		names := make(map[string]bool, len(c.Batch.Jobs))
		for i, j := range c.Batch.Jobs {
			prefix := fmt.Sprintf("batch.jobs[%d]", i)
			if j.Name == "" {
				add("%s.name is required", prefix)
			} else if names[j.Name] {
				add("%s.name %q is duplicated", prefix, j.Name)
			}
			names[j.Name] = true
			d, err := review.ParseDomain(j.Domain)
			switch {
			case err != nil:
				add("%s.domain must be amazon or yelp (got %q)", prefix, j.Domain)
			case d == review.DomainBusiness && len(j.Paths) != 1:
				add("%s.paths must hold exactly one path for domain yelp", prefix)
			case len(j.Paths) == 0:
				add("%s.paths is required", prefix)
			}
			checkBounds(add, prefix, j.SrcMin, j.SrcMax, j.TgtMin, j.TgtMax, j.Limit)
		}
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			add("server.port must be between 1 and 65535 (got %d)", c.Server.Port)
		}
	case "runs":
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func checkBounds(add func(string, ...any), prefix string, srcMin, srcMax, tgtMin, tgtMax, limit *int) {
	checkRange(add, prefix+".src", srcMin, srcMax)
	checkRange(add, prefix+".tgt", tgtMin, tgtMax)
	if limit != nil && *limit < 0 {
		add("%s.limit must not be negative (got %d)", prefix, *limit)
	}
}

func checkRange(add func(string, ...any), prefix string, lo, hi *int) {
	if lo != nil && *lo < 0 {
		add("%s_min must not be negative (got %d)", prefix, *lo)
	}
	if hi != nil && *hi < 0 {
		add("%s_max must not be negative (got %d)", prefix, *hi)
	}
	if lo != nil && hi != nil && *lo > *hi {
		add("%s_min %d exceeds %s_max %d", prefix, *lo, prefix, *hi)
	}
}
