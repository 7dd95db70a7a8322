package analytics

import "github.com/shopspring/decimal"

// orderedTotals accumulates sums per label and remembers the order in which
// labels were first seen.
type orderedTotals struct {
	index  map[string]int
	labels []string
	sums   []decimal.Decimal
}

func newOrderedTotals() *orderedTotals {
	return &orderedTotals{index: make(map[string]int)}
}

func (o *orderedTotals) add(label string, amount decimal.Decimal) {
	i, ok := o.index[label]
	if !ok {
		i = len(o.labels)
		o.index[label] = i
		o.labels = append(o.labels, label)
		o.sums = append(o.sums, decimal.Zero)
	}
	o.sums[i] = o.sums[i].Add(amount)
}

func (o *orderedTotals) len() int {
	return len(o.labels)
}
