package importer

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Policy collapses several numeric readings taken at one timestamp into one.
//
// The aligner calls a Policy with at least two values, sorted ascending, so
// any Policy that depends only on the multiset of values is order-independent.
type Policy func(values []float64) float64

// averagePrecision is the number of decimal places kept when dividing.
const averagePrecision = 24

// Average returns the arithmetic mean. The sum is exact, so the result does not
// depend on the order the values arrive in.
func Average(values []float64) float64 {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.DivRound(decimal.NewFromInt(int64(len(values))), averagePrecision).InexactFloat64()
}

// Min returns the smallest value.
func Min(values []float64) float64 { return slices.Min(values) }

// Max returns the largest value.
func Max(values []float64) float64 { return slices.Max(values) }

var policies = map[string]Policy{
	"average": Average,
	"mean":    Average,
	"min":     Min,
	"max":     Max,
}

// PolicyByName looks up a duplicate-resolution policy. The empty name selects
// Average.
func PolicyByName(name string) (Policy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Average, nil
	}
	p, ok := policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownPolicy, name, strings.Join(PolicyNames(), ", "))
	}
	return p, nil
}

// PolicyNames lists the registered policy names in ascending order.
func PolicyNames() []string {
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
