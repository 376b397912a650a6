package semantics

import (
	"regexp"
	"strconv"
	"strings"
)

// Parse units and numbers. Tries to be a 90% solution, since in practice the
// data is often not really correct.

var matchUnit = regexp.MustCompile(`^\s*\+?(\d+(?:[.,]\d+)?)\s*([/\w]*)\s*$`)

const mphToKmh = 1.609344

// multiValued reports OSM list syntax, which cannot be reduced to one number.
func multiValued(s string) bool {
	return strings.ContainsAny(s, ";|")
}

// parseNumber parses a float with a potentially wrong decimal separator.
func parseNumber(s string) (float64, bool) {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseCount parses a non-negative integer such as a lane or step count.
func parseCount(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || multiValued(s) {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil
	}
	f := float64(n)
	return &f
}

// parseMeters parses a width in meters, accepting an "m" or "meter(s)" suffix.
func parseMeters(s string) *float64 {
	text := strings.ToLower(strings.TrimSpace(s))
	if text == "" || multiValued(text) {
		return nil
	}
	for _, suffix := range []string{" meters", " meter", " m", "m"} {
		if strings.HasSuffix(text, suffix) {
			text = strings.TrimSpace(strings.TrimSuffix(text, suffix))
			break
		}
	}
	f, ok := parseNumber(text)
	if !ok || f < 0 {
		return nil
	}
	return &f
}

// parseSpeed returns a speed in km/h; mph values are converted.
func parseSpeed(s string) *float64 {
	text := strings.ToLower(strings.TrimSpace(s))
	if text == "" || multiValued(text) {
		return nil
	}
	match := matchUnit.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	base, ok := parseNumber(match[1])
	if !ok {
		return nil
	}
	switch match[2] {
	case "", "km/h", "kph", "kmph", "km", "kmh", "km/hour", "kmp", "km/hr":
	case "mph":
		base *= mphToKmh
	default:
		return nil
	}
	return &base
}

func parseYesNo(s string, present bool) parsed {
	if !present {
		return absentValue
	}
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return knownValue("yes")
	case "no", "false", "0":
		return knownValue("no")
	}
	return unknownValue
}

func parseEnum(s string, present bool, allowed map[string]bool) parsed {
	if !present {
		return absentValue
	}
	v := strings.ToLower(s)
	if allowed[v] {
		return knownValue(v)
	}
	return unknownValue
}

func surfaceClass(v string) parsed {
	switch {
	case pavedSurfaces[v]:
		return knownValue("paved")
	case unpavedSurfaces[v]:
		return knownValue("unpaved")
	}
	return unknownValue
}
