package reactor

import (
	"fmt"
	"strings"
)

// Flags classify blocks and components.
type Flags uint32

const (
	Fuel Flags = 1 << iota
	Clad
	Duct
	Coolant
	Reflector
	Plenum
	Shield
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{Fuel, "fuel"},
	{Clad, "clad"},
	{Duct, "duct"},
	{Coolant, "coolant"},
	{Reflector, "reflector"},
	{Plenum, "plenum"},
	{Shield, "shield"},
}

func (f Flags) Has(other Flags) bool {
	return other != 0 && f&other == other
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	parts := make([]string, 0, 2)
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseFlags converts names like "fuel" or "Reflector" into a flag set.
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, n := range names {
		found := false
		for _, fn := range flagNames {
			if strings.EqualFold(n, fn.name) {
				f |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("reactor: unknown flag %q", n)
		}
	}
	return f, nil
}
