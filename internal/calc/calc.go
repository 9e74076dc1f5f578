// Package calc implements the arithmetic demo tool.
package calc

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// Offset is added to every sum.
const Offset = 10

// AddArgs contains parameters for the add tool
type AddArgs struct {
	A float64 `json:"a" jsonschema:"First number"`
	B float64 `json:"b" jsonschema:"Second number"`
}

// Add returns a+b+Offset in the shortest decimal form.
func Add(_ context.Context, args AddArgs) (string, error) {
	return FormatNumber(args.A + args.B + Offset), nil
}

// FormatNumber renders a float the way JavaScript's Number#toString does:
// plain decimals between 1e-6 and 1e21, exponent form outside that range.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}

	abs := math.Abs(v)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(v, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
