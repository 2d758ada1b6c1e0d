package format

import "strings"

// ElementSet is a bit set of element types.
type ElementSet uint16

// AllElements contains every element type.
const AllElements = ElementSet(1<<ElementFloat1 | 1<<ElementFloat2 | 1<<ElementFloat3 |
	1<<ElementFloat4 | 1<<ElementVector3 | 1<<ElementRotation)

// NewElementSet returns a set holding the given element types.
func NewElementSet(elems ...ElementType) ElementSet {
	var s ElementSet
	for _, e := range elems {
		s = s.With(e)
	}

	return s
}

// Has reports whether e is in the set.
func (s ElementSet) Has(e ElementType) bool {
	return s&(1<<e) != 0
}

// With returns a copy of the set including e.
func (s ElementSet) With(e ElementType) ElementSet {
	return s | 1<<e
}

// Without returns a copy of the set excluding e.
func (s ElementSet) Without(e ElementType) ElementSet {
	return s &^ (1 << e)
}

func (s ElementSet) String() string {
	names := make([]string, 0, 6)
	for e := ElementFloat1; e <= ElementRotation; e++ {
		if s.Has(e) {
			names = append(names, e.String())
		}
	}

	return "{" + strings.Join(names, ",") + "}"
}
