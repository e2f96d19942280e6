// Package timecode converts the time encodings a model may emit into seconds.
//
// Accepted encodings: a number, a decimal string ("12.5"), "MM:SS", "HH:MM:SS"
// and "HH:MM:SS.mmm". Normalize is total: anything else maps to 0.
package timecode

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reDecimal = regexp.MustCompile(`^\d+(\.\d+)?$`)
	reDigits  = regexp.MustCompile(`^\d+$`)
	reSep     = regexp.MustCompile(`[:.]`)
)

// Normalize returns v in seconds, or 0 when the encoding is not recognized.
func Normalize(v any) float64 {
	sec, _ := Parse(v)
	return sec
}

// Parse is Normalize that also reports whether v was recognized.
func Parse(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		return parseString(x)
	default:
		return 0, false
	}
}

func parseString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if reDecimal.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}

	parts := reSep.Split(s, -1)
	if len(parts) < 2 || len(parts) > 4 {
		return 0, false
	}
	n := len(parts)
	if n == 4 {
		n = 3
	}
	fields := make([]float64, n)
	for i, p := range parts[:n] {
		if !reDigits.MatchString(p) {
			return 0, false
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, false
		}
		fields[i] = float64(v)
	}

	switch len(parts) {
	case 4:
		if !reDigits.MatchString(parts[3]) {
			return 0, false
		}
		frac, err := strconv.ParseFloat("0."+parts[3], 64)
		if err != nil {
			return 0, false
		}
		return fields[0]*3600 + fields[1]*60 + fields[2] + frac, true
	case 3:
		return fields[0]*3600 + fields[1]*60 + fields[2], true
	default:
		return fields[0]*60 + fields[1], true
	}
}

// Format renders seconds as HH:MM:SS.ss; negative values render as zero.
func Format(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	h := int(seconds / 3600)
	m := int(math.Mod(seconds, 3600) / 60)
	s := math.Mod(seconds, 60)
	return fmt.Sprintf("%02d:%02d:%05.2f", h, m, s)
}
