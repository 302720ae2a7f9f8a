// Package reactor holds the geometric and thermal state of a reactor core:
// assemblies made of axial blocks, and blocks made of material components.
package reactor

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/arte/internal/materials"
)

var (
	ErrUnknownAssembly  = errors.New("reactor: unknown assembly")
	ErrInvalidDimension = errors.New("reactor: invalid dimension")
)

type Component struct {
	name     string
	flags    Flags
	material materials.Material

	inputC   float64
	hotC     float64
	currentC float64
}

// NewComponent creates a component at its input temperature.
func NewComponent(name string, flags Flags, m materials.Material, inputC, hotC float64) *Component {
	return &Component{
		name:     name,
		flags:    flags,
		material: m,
		inputC:   inputC,
		hotC:     hotC,
		currentC: inputC,
	}
}

func (c *Component) Name() string                 { return c.name }
func (c *Component) Flags() Flags                 { return c.flags }
func (c *Component) Material() materials.Material { return c.material }
func (c *Component) TemperatureC() float64        { return c.currentC }
func (c *Component) InputTemperatureC() float64   { return c.inputC }
func (c *Component) HotTemperatureC() float64     { return c.hotC }

func (c *Component) SetTemperatureC(t float64) { c.currentC = t }

// SetPowerFraction interpolates the temperature between input (0) and hot (1).
func (c *Component) SetPowerFraction(p float64) {
	c.currentC = c.inputC + (c.hotC-c.inputC)*p
}

// ThermalExpansionFactor is the length ratio between the current temperature
// and t0.
func (c *Component) ThermalExpansionFactor(t0 float64) float64 {
	return 1.0 + materials.LinearExpansionFactor(c.material, c.currentC, t0)
}

type Block struct {
	name       string
	flags      Flags
	heightBOL  float64
	height     float64
	components []*Component
}

func NewBlock(name string, flags Flags, height float64) (*Block, error) {
	if math.IsNaN(height) || math.IsInf(height, 0) || height < 0 {
		return nil, fmt.Errorf("%w: block %s height %g", ErrInvalidDimension, name, height)
	}
	return &Block{name: name, flags: flags, heightBOL: height, height: height}, nil
}

func (b *Block) Name() string             { return b.name }
func (b *Block) Flags() Flags             { return b.flags }
func (b *Block) HeightBOL() float64       { return b.heightBOL }
func (b *Block) Height() float64          { return b.height }
func (b *Block) SetHeight(h float64)      { b.height = h }
func (b *Block) Components() []*Component { return b.components }
func (b *Block) Add(c *Component)         { b.components = append(b.components, c) }

// ComponentsWith returns the components carrying all of flags, in order.
func (b *Block) ComponentsWith(flags Flags) []*Component {
	out := make([]*Component, 0, len(b.components))
	for _, c := range b.components {
		if c.flags.Has(flags) {
			out = append(out, c)
		}
	}
	return out
}

type Assembly struct {
	location string
	flags    Flags
	blocks   []*Block
}

func NewAssembly(location string, flags Flags) *Assembly {
	return &Assembly{location: location, flags: flags}
}

func (a *Assembly) Location() string { return a.location }
func (a *Assembly) Flags() Flags     { return a.flags }
func (a *Assembly) Blocks() []*Block { return a.blocks }
func (a *Assembly) Add(b *Block)     { a.blocks = append(a.blocks, b) }

// Height is the current stack height of every block in the assembly.
func (a *Assembly) Height() float64 {
	h := 0.0
	for _, b := range a.blocks {
		h += b.height
	}
	return h
}

// BlocksWith returns the blocks carrying all of flags, bottom to top.
func (a *Assembly) BlocksWith(flags Flags) []*Block {
	out := make([]*Block, 0, len(a.blocks))
	for _, b := range a.blocks {
		if b.flags.Has(flags) {
			out = append(out, b)
		}
	}
	return out
}

type Core struct {
	Name string

	assemblies []*Assembly
	refLoc     string
	axialMesh  []float64
	meshOn     bool
}

func NewCore(name string) *Core {
	return &Core{Name: name}
}

func (c *Core) Add(a *Assembly) {
	c.assemblies = append(c.assemblies, a)
	if c.refLoc == "" {
		c.refLoc = a.location
	}
}

func (c *Core) Assemblies() []*Assembly { return c.assemblies }

// AssembliesWith returns assemblies with at least one block carrying flags.
func (c *Core) AssembliesWith(flags Flags) []*Assembly {
	out := make([]*Assembly, 0, len(c.assemblies))
	for _, a := range c.assemblies {
		if a.flags.Has(flags) || len(a.BlocksWith(flags)) > 0 {
			out = append(out, a)
		}
	}
	return out
}

func (c *Core) Assembly(location string) (*Assembly, error) {
	for _, a := range c.assemblies {
		if a.location == location {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAssembly, location)
}

func (c *Core) SetReferenceAssembly(location string) error {
	if _, err := c.Assembly(location); err != nil {
		return err
	}
	c.refLoc = location
	return nil
}

// ReferenceAssembly is the assembly the axial mesh follows, or nil for an
// empty core.
func (c *Core) ReferenceAssembly() *Assembly {
	a, err := c.Assembly(c.refLoc)
	if err != nil {
		return nil
	}
	return a
}

// EnableAxialMesh builds the mesh from the reference assembly and keeps it
// defined from then on.
func (c *Core) EnableAxialMesh() {
	c.meshOn = true
	c.UpdateAxialMesh()
}

func (c *Core) AxialMesh() []float64 { return c.axialMesh }

func (c *Core) HasAxialMesh() bool { return c.meshOn && len(c.axialMesh) > 0 }

// UpdateAxialMesh rebuilds the mesh as the block tops of the reference assembly.
func (c *Core) UpdateAxialMesh() {
	ref := c.ReferenceAssembly()
	if ref == nil {
		c.axialMesh = nil
		return
	}
	mesh := make([]float64, 0, len(ref.blocks))
	z := 0.0
	for _, b := range ref.blocks {
		z += b.height
		mesh = append(mesh, z)
	}
	c.axialMesh = mesh
}

// SetPowerFraction drives every component temperature.
func (c *Core) SetPowerFraction(p float64) {
	for _, a := range c.assemblies {
		for _, b := range a.blocks {
			for _, comp := range b.components {
				comp.SetPowerFraction(p)
			}
		}
	}
}
