package sqlite

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
	"github.com/ironbark-dev/ironbark/internal/identity/store"
)

// The settings maps attached to a client credential are persisted as JSON
// text blobs. Values are typed in memory (string, time.Duration,
// domain.SigningAlgorithm, domain.TokenFormat) but JSON flattens them to
// plain strings and objects, so decoding runs a heuristic recovery pass:
//
//   - a string shaped like an ISO-8601 duration becomes a time.Duration
//   - a string under a key containing "algorithm" becomes a SigningAlgorithm
//   - a nested object carrying a "value" key becomes a TokenFormat
//
// Any coercion failure silently keeps the raw value. The heuristic is
// inherently ambiguous for keys that coincidentally match these shapes;
// that is a known property of the stored format, not something to fix here.

// encodeSettings renders a settings map to its persisted JSON form.
func encodeSettings(m map[string]any) (string, error) {
	wire := make(map[string]any, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case time.Duration:
			wire[k] = formatISODuration(val)
		case domain.SigningAlgorithm:
			wire[k] = string(val)
		case domain.TokenFormat:
			wire[k] = map[string]any{"value": val.Value}
		default:
			wire[k] = v
		}
	}

	blob, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("%w: %w", store.ErrSerialization, err)
	}
	return string(blob), nil
}

// decodeSettings parses a persisted JSON blob back into a settings map and
// applies the type-recovery pass.
func decodeSettings(blob string) (map[string]any, error) {
	if blob == "" {
		return map[string]any{}, nil
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(blob), &m); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrSerialization, err)
	}

	for k, v := range m {
		m[k] = recoverSettingValue(k, v)
	}
	return m, nil
}

func recoverSettingValue(key string, v any) any {
	switch val := v.(type) {
	case string:
		if looksLikeISODuration(val) {
			if d, err := parseISODuration(val); err == nil {
				return d
			}
			// Unparseable duration-shaped string: keep the raw value.
		}
		if strings.Contains(strings.ToLower(key), "algorithm") {
			return domain.SigningAlgorithm(val)
		}
		return val
	case map[string]any:
		if inner, ok := val["value"]; ok {
			if s, ok := inner.(string); ok {
				return domain.TokenFormat{Value: s}
			}
		}
		return val
	default:
		return v
	}
}

// joinList flattens a set-valued field into the comma-joined column form.
func joinList(values []string) string {
	return strings.Join(values, ",")
}

// splitList reverses joinList. An empty column decodes to no members rather
// than a single empty member.
func splitList(column string) []string {
	if column == "" {
		return nil
	}
	return strings.Split(column, ",")
}

// looksLikeISODuration reports whether s has an ISO-8601 duration prefix.
func looksLikeISODuration(s string) bool {
	s = strings.ToUpper(strings.TrimPrefix(s, "-"))
	return strings.HasPrefix(s, "PT")
}

// formatISODuration renders d in the time-only ISO-8601 form ("PT2H30M",
// "PT300S", "PT0.5S"). The zero duration is "PT0S".
func formatISODuration(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteString("PT")

	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d.Seconds()

	if hours > 0 {
		fmt.Fprintf(&b, "%dH", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dM", minutes)
	}
	if seconds > 0 || (hours == 0 && minutes == 0) {
		s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.9f", seconds), "0"), ".")
		b.WriteString(s)
		b.WriteByte('S')
	}
	return b.String()
}

// parseISODuration parses the time-only ISO-8601 duration form produced by
// formatISODuration (and by java.time.Duration, whose rows this format must
// stay compatible with).
func parseISODuration(s string) (time.Duration, error) {
	orig := s
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "PT") || len(upper) <= 2 {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", orig)
	}
	rest := upper[2:]

	var total time.Duration
	var num strings.Builder
	seen := map[byte]bool{}

	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if (c >= '0' && c <= '9') || c == '.' {
			num.WriteByte(c)
			continue
		}

		var unit time.Duration
		switch c {
		case 'H':
			unit = time.Hour
		case 'M':
			unit = time.Minute
		case 'S':
			unit = time.Second
		default:
			return 0, fmt.Errorf("invalid ISO-8601 duration %q", orig)
		}
		if num.Len() == 0 || seen[c] {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q", orig)
		}
		seen[c] = true

		var value float64
		if _, err := fmt.Sscanf(num.String(), "%f", &value); err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q", orig)
		}
		total += time.Duration(value * float64(unit))
		num.Reset()
	}
	if num.Len() != 0 {
		// Trailing digits without a unit designator.
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", orig)
	}

	if negative {
		total = -total
	}
	return total, nil
}
