package sim

import (
	"github.com/san-kum/arte/internal/expansion"
	"github.com/san-kum/arte/internal/reactor"
)

// hostCore presents the fuel of a reactor core to the expansion engine. The
// wrappers hold pointers only, so equal wrappers mean the same entity.
type hostCore struct {
	core *reactor.Core
}

func (h hostCore) FuelAssemblies() []expansion.Assembly {
	src := h.core.AssembliesWith(reactor.Fuel)
	out := make([]expansion.Assembly, len(src))
	for i, a := range src {
		out[i] = hostAssembly{a}
	}
	return out
}

func (h hostCore) HasAxialMesh() bool { return h.core.HasAxialMesh() }
func (h hostCore) UpdateAxialMesh()   { h.core.UpdateAxialMesh() }

type hostAssembly struct {
	*reactor.Assembly
}

func (h hostAssembly) FuelBlocks() []expansion.Block {
	src := h.BlocksWith(reactor.Fuel)
	out := make([]expansion.Block, len(src))
	for i, b := range src {
		out[i] = hostBlock{b}
	}
	return out
}

type hostBlock struct {
	*reactor.Block
}

func (h hostBlock) FuelComponents() []expansion.Component {
	src := h.ComponentsWith(reactor.Fuel)
	out := make([]expansion.Component, len(src))
	for i, c := range src {
		out[i] = c
	}
	return out
}
