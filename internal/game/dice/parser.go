package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression represents a parsed dice expression ready to be rolled.
//
// A constant expression ("5", "-2") has Count == 0 and rolls to Modifier.
// Invariant after Parse: Count >= 0; Count > 0 implies Sides >= 1.
type Expression struct {
	Raw         string // original input string
	Count       int    // number of dice
	Sides       int    // faces per die
	Modifier    int    // flat modifier (may be negative)
	KeepHighest int    // if > 0, keep only the N highest dice (e.g. 4d6kh3)
}

// Min returns the smallest total the expression can roll.
func (e Expression) Min() int {
	n := e.Count
	if e.KeepHighest > 0 {
		n = e.KeepHighest
	}
	return n + e.Modifier
}

// Max returns the largest total the expression can roll.
func (e Expression) Max() int {
	n := e.Count
	if e.KeepHighest > 0 {
		n = e.KeepHighest
	}
	return n*e.Sides + e.Modifier
}

// String returns the original expression text.
func (e Expression) String() string { return e.Raw }

// Parse parses a dice expression string into an Expression.
// Supported forms: "7", "d20", "1d1", "2d6", "2d6+3", "4d8-2", "4d6kh3", "4d6kh3+1".
//
// Postcondition: Returns a valid Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	s := strings.ToLower(strings.ReplaceAll(raw, " ", ""))

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		mod, err := strconv.Atoi(s)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: %q is neither a dice expression nor an integer", raw)
		}
		return Expression{Raw: raw, Modifier: mod}, nil
	}

	count := 1
	if countStr := s[:dIdx]; countStr != "" {
		n, err := strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if n <= 0 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", raw)
		}
		count = n
	}

	body, modStr := splitModifier(s[dIdx+1:])

	keepHighest := 0
	if khIdx := strings.Index(body, "kh"); khIdx >= 0 {
		kh, err := strconv.Atoi(body[khIdx+2:])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid kh value in %q: %w", raw, err)
		}
		if kh <= 0 || kh >= count {
			return Expression{}, fmt.Errorf("dice: kh value %d must be > 0 and < count %d in %q", kh, count, raw)
		}
		keepHighest = kh
		body = body[:khIdx]
	}

	sides, err := strconv.Atoi(body)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 1 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 1", raw)
	}

	modifier := 0
	if modStr != "" {
		modifier, err = strconv.Atoi(modStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
	}

	return Expression{
		Raw:         raw,
		Count:       count,
		Sides:       sides,
		Modifier:    modifier,
		KeepHighest: keepHighest,
	}, nil
}

// splitModifier splits "6kh3+2" into ("6kh3", "+2"). A sign at position 0
// belongs to the body so "d-4" fails on the sides parse rather than silently.
func splitModifier(rest string) (string, string) {
	for i := 1; i < len(rest); i++ {
		if rest[i] == '+' || rest[i] == '-' {
			return rest[:i], rest[i:]
		}
	}
	return rest, ""
}
