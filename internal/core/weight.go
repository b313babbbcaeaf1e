package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultWeightPattern matches the free-text line format most indicators
// emit: optional sign, decimal magnitude, optional trailing unit token.
const DefaultWeightPattern = `(?P<sign>[+-])?(?P<num>\d+(?:\.\d+)?)\s*(?P<unit>[a-zA-Z]{1,4})?`

// ParseWeightLine extracts a weight reading from one raw indicator line.
//
// The pattern must define a named group "num" (the magnitude) and may define
// "sign" and "unit". A missing unit group defaults to "KG"; a captured unit
// is upper-cased verbatim. Any failure (empty input, invalid pattern, no
// match, missing num group, unparseable magnitude) yields nil, never an
// error: a line that cannot be read is a normal no-reading cycle.
func ParseWeightLine(line, pattern string) *WeightReading {
	if line == "" || pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	return ParseWeightMatch(line, re)
}

// ParseWeightMatch is ParseWeightLine against a pre-compiled pattern. The
// link manager compiles once per configuration and uses this on every line.
func ParseWeightMatch(line string, re *regexp.Regexp) *WeightReading {
	if line == "" || re == nil {
		return nil
	}

	numIdx := re.SubexpIndex("num")
	if numIdx < 0 {
		// Pattern without a magnitude group is a configuration error;
		// it can never produce a reading.
		return nil
	}

	m := re.FindStringSubmatch(line)
	if m == nil || m[numIdx] == "" {
		return nil
	}

	weight, err := decimal.NewFromString(m[numIdx])
	if err != nil {
		return nil
	}

	if signIdx := re.SubexpIndex("sign"); signIdx >= 0 && m[signIdx] == "-" {
		weight = weight.Neg()
	}

	unit := "KG"
	if unitIdx := re.SubexpIndex("unit"); unitIdx >= 0 && m[unitIdx] != "" {
		unit = strings.ToUpper(m[unitIdx])
	}

	return &WeightReading{Weight: weight, Unit: unit}
}
