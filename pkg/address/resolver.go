package address

import (
	"strings"

	"go.uber.org/zap"
)

// minPrefixLen is the shortest input eligible for prefix-match fallback.
// Shorter inputs are too ambiguous to guess at.
const minPrefixLen = 3

// Resolver maps short location codes to canonical addresses.
//
// Resolution never fails: an unknown code is returned unchanged with a
// logged warning, and the remote form's own validation is the final word.
type Resolver struct {
	entries []Entry
	exact   map[string]string // upper-cased code -> address
	logger  *zap.Logger
}

// NewResolver builds a resolver over a lookup table. A nil or empty table
// degrades every lookup to pass-through.
func NewResolver(entries []Entry, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	exact := make(map[string]string)
	for _, e := range entries {
		for _, code := range e.Codes {
			code = strings.ToUpper(strings.TrimSpace(code))
			if code == "" {
				continue
			}
			if _, dup := exact[code]; !dup {
				exact[code] = e.Address
			}
		}
	}
	return &Resolver{entries: entries, exact: exact, logger: logger}
}

// Resolve maps a location code to its canonical address.
//
// Values that already look like full addresses (containing a comma or a
// space) are returned unchanged. Otherwise an exact case-insensitive code
// match is tried, then a prefix match for inputs of three or more
// characters, recovering truncated codes like "NME" against a table entry
// "NMED". Unmatched codes pass through with a warning.
func (r *Resolver) Resolve(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return code
	}

	if strings.ContainsAny(trimmed, " ,") {
		return trimmed
	}

	upper := strings.ToUpper(trimmed)
	if addr, ok := r.exact[upper]; ok {
		r.logger.Debug("resolved location code",
			zap.String("code", trimmed),
			zap.String("address", addr))
		return addr
	}

	if len(upper) >= minPrefixLen {
		for _, e := range r.entries {
			for _, tc := range e.Codes {
				if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(tc)), upper) {
					r.logger.Debug("resolved location code by prefix",
						zap.String("code", trimmed),
						zap.String("table_code", tc),
						zap.String("address", e.Address))
					return e.Address
				}
			}
		}
	}

	r.logger.Warn("no address found for location code, using as-is",
		zap.String("code", trimmed))
	return trimmed
}
