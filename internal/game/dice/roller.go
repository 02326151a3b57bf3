package dice

import "slices"

// Roll draws the dice of expr from src. With KeepHighest set the kept dice
// are reported highest first; otherwise in draw order.
//
// Precondition: expr comes from Parse and src is non-nil.
func Roll(expr Expression, src Source) RollResult {
	faces := make([]int, expr.Count)
	for i := range faces {
		faces[i] = 1 + src.Intn(expr.Sides)
	}
	if k := expr.KeepHighest; k > 0 {
		slices.SortFunc(faces, func(a, b int) int { return b - a })
		faces = faces[:k:k]
	}
	return RollResult{Expression: expr.Raw, Dice: faces, Modifier: expr.Modifier}
}

// MustParse is Parse for expressions fixed at compile time, such as the
// default combat rules.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return e
}
