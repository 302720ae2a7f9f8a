package expansion

import (
	"github.com/san-kum/arte/internal/materials"
)

type fakeComponent struct {
	name   string
	temp   float64
	input  float64
	factor func(t0, tc float64) float64
}

func (c *fakeComponent) Name() string               { return c.name }
func (c *fakeComponent) TemperatureC() float64      { return c.temp }
func (c *fakeComponent) InputTemperatureC() float64 { return c.input }

func (c *fakeComponent) ThermalExpansionFactor(t0 float64) float64 {
	return c.factor(t0, c.temp)
}

// fixedFactor ignores temperatures entirely.
func fixedFactor(name string, f float64) *fakeComponent {
	return &fakeComponent{
		name:   name,
		temp:   20,
		input:  20,
		factor: func(float64, float64) float64 { return f },
	}
}

func materialComponent(name string, m materials.Material, input, temp float64) *fakeComponent {
	return &fakeComponent{
		name:  name,
		temp:  temp,
		input: input,
		factor: func(t0, tc float64) float64 {
			return 1 + materials.LinearExpansionFactor(m, tc, t0)
		},
	}
}

type fakeBlock struct {
	name       string
	bol        float64
	height     float64
	components []*fakeComponent
	setCalls   int
}

func newBlock(name string, height float64, comps ...*fakeComponent) *fakeBlock {
	return &fakeBlock{name: name, bol: height, height: height, components: comps}
}

func (b *fakeBlock) Name() string       { return b.name }
func (b *fakeBlock) HeightBOL() float64 { return b.bol }
func (b *fakeBlock) Height() float64    { return b.height }

func (b *fakeBlock) SetHeight(h float64) {
	b.height = h
	b.setCalls++
}

func (b *fakeBlock) FuelComponents() []Component {
	out := make([]Component, len(b.components))
	for i, c := range b.components {
		if c != nil {
			out[i] = c
		}
	}
	return out
}

type fakeAssembly struct {
	loc    string
	blocks []*fakeBlock
}

func newAssembly(loc string, blocks ...*fakeBlock) *fakeAssembly {
	return &fakeAssembly{loc: loc, blocks: blocks}
}

func (a *fakeAssembly) Location() string { return a.loc }

func (a *fakeAssembly) FuelBlocks() []Block {
	out := make([]Block, len(a.blocks))
	for i, b := range a.blocks {
		out[i] = b
	}
	return out
}

type fakeCore struct {
	assemblies  []*fakeAssembly
	mesh        bool
	meshUpdates int
}

func newCore(assemblies ...*fakeAssembly) *fakeCore {
	return &fakeCore{assemblies: assemblies}
}

func (c *fakeCore) FuelAssemblies() []Assembly {
	out := make([]Assembly, len(c.assemblies))
	for i, a := range c.assemblies {
		out[i] = a
	}
	return out
}

func (c *fakeCore) HasAxialMesh() bool { return c.mesh }
func (c *fakeCore) UpdateAxialMesh()   { c.meshUpdates++ }
