package materials

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnknownMaterial is returned by the registry for names it does not know.
var ErrUnknownMaterial = errors.New("materials: unknown material")

type Material interface {
	Name() string
	// LinearExpansionPercent is the free linear expansion in percent relative
	// to 0 °C at temperature tC.
	LinearExpansionPercent(tC float64) float64
}

// LinearExpansionFactor returns the fractional length change of m when heated
// from t0 to tc (both °C). Cooling yields a negative value.
func LinearExpansionFactor(m Material, tc, t0 float64) float64 {
	dll0 := m.LinearExpansionPercent(t0)
	return (m.LinearExpansionPercent(tc) - dll0) / (100.0 + dll0)
}

// Polynomial is a material whose expansion is a polynomial in temperature.
// Coeffs[i] multiplies T^i, T in °C, result in percent.
type Polynomial struct {
	Label  string
	Coeffs []float64
	// MinC and MaxC bound the fit; temperatures outside are clamped.
	MinC float64
	MaxC float64
}

func (p *Polynomial) Name() string { return p.Label }

func (p *Polynomial) LinearExpansionPercent(tC float64) float64 {
	if p.MaxC > p.MinC {
		tC = math.Max(p.MinC, math.Min(p.MaxC, tC))
	}
	// Horner
	v := 0.0
	for i := len(p.Coeffs) - 1; i >= 0; i-- {
		v = v*tC + p.Coeffs[i]
	}
	return v
}

func NewUZr() *Polynomial {
	return &Polynomial{
		Label:  "UZr",
		Coeffs: []float64{-2.84e-2, 1.36e-3, 1.5e-7},
		MinC:   -273.15,
		MaxC:   1200,
	}
}

func NewHT9() *Polynomial {
	return &Polynomial{
		Label:  "HT9",
		Coeffs: []float64{-2.191e-2, 1.096e-3, 4.0e-8},
		MinC:   -273.15,
		MaxC:   1050,
	}
}

func NewUO2() *Polynomial {
	return &Polynomial{
		Label:  "UO2",
		Coeffs: []float64{-2.66e-2, 9.8e-4, 2.9e-7},
		MinC:   -273.15,
		MaxC:   2800,
	}
}

func NewB4C() *Polynomial {
	return &Polynomial{
		Label:  "B4C",
		Coeffs: []float64{-1.0e-2, 4.5e-4, 1.1e-7},
		MinC:   -273.15,
		MaxC:   2000,
	}
}

// Constant expands linearly with a fixed coefficient (1/K).
type Constant struct {
	Label string
	Alpha float64
}

func NewConstant(alpha float64) *Constant {
	return &Constant{Label: fmt.Sprintf("constant(%g)", alpha), Alpha: alpha}
}

func (c *Constant) Name() string { return c.Label }

func (c *Constant) LinearExpansionPercent(tC float64) float64 {
	return 100.0 * c.Alpha * tC
}

// Inert never changes length.
type Inert struct{}

func (Inert) Name() string                           { return "inert" }
func (Inert) LinearExpansionPercent(float64) float64 { return 0 }

type Registry struct {
	materials map[string]func() Material
}

func NewRegistry() *Registry {
	r := &Registry{materials: make(map[string]func() Material)}

	r.materials["UZr"] = func() Material { return NewUZr() }
	r.materials["HT9"] = func() Material { return NewHT9() }
	r.materials["UO2"] = func() Material { return NewUO2() }
	r.materials["B4C"] = func() Material { return NewB4C() }
	r.materials["inert"] = func() Material { return Inert{} }

	return r
}

// Register adds or replaces a material factory.
func (r *Registry) Register(name string, fn func() Material) {
	r.materials[name] = fn
}

func (r *Registry) Get(name string) (Material, error) {
	fn, ok := r.materials[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMaterial, name)
	}
	return fn(), nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.materials))
	for name := range r.materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
