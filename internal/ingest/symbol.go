package ingest

import "strings"

var (
	contractSuffixes = []string{"-PERP", "_PERP", "-SWAP", "_SWAP", "PERP"}
	// Longest first so "FDUSD" is not read as "FD" + "USD".
	quoteSuffixes = []string{"FDUSD", "USDT", "USDC", "BUSD", "USD"}
)

// CanonicalSymbol reduces a venue spelling to the traded asset, e.g.
// "btc/usdt:usdt", "BTC-USDT-SWAP", "BTCUSDT" and "BTC-PERP" all become
// "BTC". Index aliases such as "@107" pass through unchanged.
func CanonicalSymbol(raw string) string {
	s := strings.ToUpper(strings.Trim(strings.TrimSpace(raw), "\"'` "))
	if s == "" {
		return ""
	}

	if base, _, ok := strings.Cut(s, "/"); ok {
		s = base
	} else if head, tail, ok := strings.Cut(s, ":"); ok && isQuote(tail) {
		s = head
	}

	for _, suffix := range contractSuffixes {
		if trimmed, ok := trimSuffix(s, suffix); ok {
			s = trimmed
			break
		}
	}
	for _, suffix := range quoteSuffixes {
		if trimmed, ok := trimSuffix(s, suffix); ok {
			s = trimmed
			break
		}
	}
	return strings.TrimSpace(s)
}

// IsIndexAlias reports whether s is a numeric or "@"-prefixed index id.
func IsIndexAlias(s string) bool {
	s = strings.TrimPrefix(s, "@")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// trimSuffix removes suffix and any separator before it, only when
// something is left.
func trimSuffix(s, suffix string) (string, bool) {
	if !strings.HasSuffix(s, suffix) {
		return s, false
	}
	rest := strings.TrimRight(strings.TrimSuffix(s, suffix), "-_")
	if rest == "" {
		return s, false
	}
	return rest, true
}

func isQuote(s string) bool {
	for _, q := range quoteSuffixes {
		if s == q {
			return true
		}
	}
	return false
}
