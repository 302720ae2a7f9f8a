package expansion

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/multierr"

	"github.com/san-kum/arte/internal/materials"
	"github.com/san-kum/arte/internal/report"
)

func mustEngine(core Core, cfg Config) *Engine {
	e, err := New(core, cfg, nil)
	Expect(err).NotTo(HaveOccurred())
	return e
}

var _ = Describe("New", func() {
	It("rejects a nil core", func() {
		_, err := New(nil, DefaultConfig(), nil)
		Expect(err).To(MatchError(ErrNilCore))
	})

	It("accepts an empty core", func() {
		e := mustEngine(newCore(), DefaultConfig())
		Expect(e.Assemblies()).To(BeEmpty())
		Expect(e.ExpandFuelBlocks()).To(Succeed())

		var sink report.Collector
		Expect(e.GenerateAssemblyReport(&sink)).To(Succeed())
		Expect(sink.Rows).To(BeEmpty())
	})

	It("rejects a block owned by two assemblies", func() {
		shared := newBlock("shared", 10, fixedFactor("fuel", 1))
		core := newCore(newAssembly("001", shared), newAssembly("002", shared))

		_, err := New(core, DefaultConfig(), nil)
		Expect(err).To(MatchError(ErrDuplicateEntity))
	})

	It("rejects a component owned by two blocks", func() {
		comp := fixedFactor("fuel", 1)
		core := newCore(newAssembly("001", newBlock("a", 10, comp), newBlock("b", 10, comp)))

		_, err := New(core, DefaultConfig(), nil)
		Expect(err).To(MatchError(ErrDuplicateEntity))
	})

	It("rejects nil entries", func() {
		core := newCore(newAssembly("001", newBlock("a", 10, nil)))
		_, err := New(core, DefaultConfig(), nil)
		Expect(err).To(MatchError(ErrNilEntity))
	})

	It("snapshots the layout", func() {
		asm := newAssembly("001", newBlock("a", 10, fixedFactor("fuel", 1.1)))
		core := newCore(asm)
		e := mustEngine(core, DefaultConfig())

		late := newBlock("late", 10, fixedFactor("fuel", 1.1))
		asm.blocks = append(asm.blocks, late)

		Expect(e.ExpandFuelBlocks()).To(Succeed())
		Expect(late.height).To(Equal(10.0))
		Expect(late.setCalls).To(BeZero())
	})
})

var _ = Describe("expanding a block", func() {
	It("takes the most expanded component", func() {
		block := newBlock("fuel", 100,
			fixedFactor("a", 1.02),
			fixedFactor("b", 1.05),
			fixedFactor("c", 0.98),
		)
		e := mustEngine(newCore(newAssembly("001", block)), DefaultConfig())

		delta, err := e.expandBlock(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(block.height).To(BeNumerically("~", 105.0, 1e-9))
		Expect(delta).To(BeNumerically("~", 5.0, 1e-9))
	})

	It("never shrinks below the previous height", func() {
		block := newBlock("fuel", 50, fixedFactor("a", 0.97), fixedFactor("b", 0.99))
		e := mustEngine(newCore(newAssembly("001", block)), DefaultConfig())

		delta, err := e.expandBlock(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(delta).To(BeZero())
		Expect(block.height).To(Equal(50.0))
	})

	It("keeps a block with no fuel components at its height", func() {
		block := newBlock("empty", 12)
		e := mustEngine(newCore(newAssembly("001", block)), DefaultConfig())

		delta, err := e.expandBlock(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(delta).To(BeZero())
		Expect(block.height).To(Equal(12.0))
	})

	It("references the cold temperature on the first call", func() {
		comp := materialComponent("fuel", materials.NewUZr(), 300, 600)
		block := newBlock("fuel", 10, comp)
		e := mustEngine(newCore(newAssembly("001", block)), DefaultConfig())

		_, err := e.expandBlock(0)
		Expect(err).NotTo(HaveOccurred())

		want := 10 * (1 + materials.LinearExpansionFactor(materials.NewUZr(), 600, DefaultColdTemperatureC))
		Expect(block.height).To(BeNumerically("~", want, 1e-12))
	})

	It("references the input temperature when cold temperature is disabled", func() {
		comp := materialComponent("fuel", materials.NewUZr(), 300, 600)
		block := newBlock("fuel", 10, comp)
		e := mustEngine(newCore(newAssembly("001", block)), Config{})

		_, err := e.expandBlock(0)
		Expect(err).NotTo(HaveOccurred())

		want := 10 * (1 + materials.LinearExpansionFactor(materials.NewUZr(), 600, 300))
		Expect(block.height).To(BeNumerically("~", want, 1e-12))
	})

	It("honours a custom cold temperature", func() {
		cold := 100.0
		comp := materialComponent("fuel", materials.NewUZr(), 20, 600)
		block := newBlock("fuel", 10, comp)
		e := mustEngine(newCore(newAssembly("001", block)), Config{ColdTemperatureC: &cold})

		_, err := e.expandBlock(0)
		Expect(err).NotTo(HaveOccurred())

		want := 10 * (1 + materials.LinearExpansionFactor(materials.NewUZr(), 600, 100))
		Expect(block.height).To(BeNumerically("~", want, 1e-12))
	})

	It("records the temperature even when the block does not grow", func() {
		uzr := materials.NewUZr()
		comp := materialComponent("fuel", uzr, 20, 600)
		block := newBlock("fuel", 10, comp)
		e := mustEngine(newCore(newAssembly("001", block)), DefaultConfig())

		_, err := e.expandBlock(0)
		Expect(err).NotTo(HaveOccurred())
		first := block.height

		comp.temp = 400
		delta, err := e.expandBlock(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(delta).To(BeZero())
		Expect(block.height).To(Equal(first))

		// Back to 600 expands again, this time relative to 400.
		comp.temp = 600
		_, err = e.expandBlock(0)
		Expect(err).NotTo(HaveOccurred())
		want := first * (1 + materials.LinearExpansionFactor(uzr, 600, 400))
		Expect(block.height).To(BeNumerically("~", want, 1e-12))
	})

	DescribeTable("repeated cycles at constant temperature saturate after the first",
		func(cycles int) {
			uzr := materials.NewUZr()
			block := newBlock("TestBlock", 2, materialComponent("fuel", uzr, 20, 600))
			e := mustEngine(newCore(newAssembly("001", block)), DefaultConfig())

			f := 1 + materials.LinearExpansionFactor(uzr, 600, 20)
			for i := 0; i < cycles; i++ {
				_, err := e.expandBlock(0)
				Expect(err).NotTo(HaveOccurred())
				Expect(block.height).To(BeNumerically("~", 2*f, 1e-11))
			}
			Expect(block.height).To(BeNumerically(">", block.bol))
		},
		Entry("1 cycle", 1),
		Entry("10 cycles", 10),
		Entry("100 cycles", 100),
	)
})

var _ = Describe("expanding assemblies", func() {
	DescribeTable("single assembly growth",
		func(cycles int) {
			uzr := materials.NewUZr()
			block := newBlock("TestBlock", 2, materialComponent("fuel", uzr, 20, 600))
			asm := newAssembly("001", block)
			e := mustEngine(newCore(asm), DefaultConfig())

			for i := 0; i < cycles; i++ {
				_, err := e.expandAssembly(0)
				Expect(err).NotTo(HaveOccurred())
			}

			f := 1 + materials.LinearExpansionFactor(uzr, 600, 20)
			Expect(e.TotalAssemblyGrowth(asm)).To(BeNumerically(">", 0.0))
			Expect(e.TotalAssemblyGrowth(asm)).To(BeNumerically("~", 2*f-2, 1e-11))
		},
		Entry("1 cycle", 1),
		Entry("10 cycles", 10),
		Entry("100 cycles", 100),
	)

	It("reports zero growth for unknown assemblies", func() {
		e := mustEngine(newCore(newAssembly("001", newBlock("a", 1, fixedFactor("f", 1.1)))), DefaultConfig())
		Expect(e.ExpandFuelBlocks()).To(Succeed())
		Expect(e.TotalAssemblyGrowth(newAssembly("999"))).To(BeZero())
	})

	It("leaves growth untouched when every factor is one", func() {
		block := newBlock("fuel", 30, materialComponent("fuel", materials.NewUZr(), 20, 20))
		asm := newAssembly("001", block)
		e := mustEngine(newCore(asm), DefaultConfig())

		for i := 0; i < 10; i++ {
			Expect(e.ExpandFuelBlocks()).To(Succeed())
			Expect(e.TotalAssemblyGrowth(asm)).To(BeZero())
			Expect(block.height).To(Equal(30.0))
		}
		Expect(e.Nodes()).To(Equal(10))
	})

	It("keeps every block monotone and the accumulator consistent", func() {
		uzr, ht9 := materials.NewUZr(), materials.NewHT9()
		fuelA := materialComponent("fuel", uzr, 20, 20)
		cladA := materialComponent("clad", ht9, 20, 20)
		fuelB := materialComponent("fuel", uzr, 20, 20)
		blocks := []*fakeBlock{
			newBlock("lower", 20, fuelA, cladA),
			newBlock("upper", 25, fuelB),
		}
		asm := newAssembly("001", blocks...)
		e := mustEngine(newCore(asm), DefaultConfig())

		temps := []float64{300, 600, 450, 700, 200, 650, 650, 800}
		sumDeltas := 0.0
		for i, tc := range temps {
			fuelA.temp = tc
			cladA.temp = tc - 50
			fuelB.temp = tc - float64(i)*10

			before := []float64{blocks[0].height, blocks[1].height}
			Expect(e.ExpandFuelBlocks()).To(Succeed())

			for j, b := range blocks {
				Expect(b.height).To(BeNumerically(">=", before[j]))
				sumDeltas += b.height - before[j]
			}
			Expect(e.TotalAssemblyGrowth(asm)).To(BeNumerically("~", sumDeltas, 1e-12))
		}
		Expect(sumDeltas).To(BeNumerically(">", 0.0))
	})

	It("grows in steps that match a single jump on a monotone ramp", func() {
		uzr := materials.NewUZr()
		ramped := materialComponent("fuel", uzr, 20, 20)
		rampBlock := newBlock("ramp", 50, ramped)
		jumpBlock := newBlock("jump", 50, materialComponent("fuel", uzr, 20, 600))
		e := mustEngine(newCore(newAssembly("001", rampBlock), newAssembly("002", jumpBlock)), DefaultConfig())

		for _, tc := range []float64{150, 300, 450, 600} {
			ramped.temp = tc
			Expect(e.ExpandFuelBlocks()).To(Succeed())
		}
		Expect(rampBlock.height).To(BeNumerically("~", jumpBlock.height, 1e-12))
	})

	It("refreshes the axial mesh only when one is defined", func() {
		core := newCore(newAssembly("001", newBlock("a", 1, fixedFactor("f", 1.01))))
		e := mustEngine(core, DefaultConfig())

		Expect(e.ExpandFuelBlocks()).To(Succeed())
		Expect(core.meshUpdates).To(BeZero())

		core.mesh = true
		Expect(e.ExpandFuelBlocks()).To(Succeed())
		Expect(e.ExpandFuelBlocks()).To(Succeed())
		Expect(core.meshUpdates).To(Equal(2))
	})
})

var _ = Describe("expansion failures", func() {
	var (
		good    *fakeBlock
		bad     *fakeComponent
		goodAsm *fakeAssembly
		core    *fakeCore
		e       *Engine
	)

	BeforeEach(func() {
		good = newBlock("fuel-1", 2, materialComponent("fuel", materials.NewUZr(), 20, 600))
		bad = fixedFactor("pin", math.NaN())
		goodAsm = newAssembly("001", good)
		core = newCore(goodAsm, newAssembly("002", newBlock("fuel-2", 2, bad)))
		core.mesh = true
		e = mustEngine(core, DefaultConfig())
	})

	It("halts the node and names the offending block", func() {
		err := e.ExpandFuelBlocks()
		Expect(err).To(MatchError(ErrInvalidFactor))

		var be *BlockError
		Expect(errors.As(err, &be)).To(BeTrue())
		Expect(be.Node).To(Equal(1))
		Expect(be.Assembly).To(Equal("002"))
		Expect(be.Block).To(Equal("fuel-2"))
		Expect(be.Component).To(Equal("pin"))
		Expect(err.Error()).To(ContainSubstring("assembly 002 block fuel-2 component pin"))
	})

	It("leaves heights, caches and accumulators untouched", func() {
		Expect(e.ExpandFuelBlocks()).NotTo(Succeed())
		Expect(good.height).To(Equal(2.0))
		Expect(good.setCalls).To(BeZero())
		Expect(e.TotalAssemblyGrowth(goodAsm)).To(BeZero())
		Expect(e.Nodes()).To(BeZero())
		Expect(core.meshUpdates).To(BeZero())

		// Once fixed, the good block still expands from the cold temperature.
		bad.factor = func(float64, float64) float64 { return 1 }
		Expect(e.ExpandFuelBlocks()).To(Succeed())
		f := 1 + materials.LinearExpansionFactor(materials.NewUZr(), 600, 20)
		Expect(good.height).To(BeNumerically("~", 2*f, 1e-12))
	})

	It("rejects non-positive factors", func() {
		bad.factor = func(float64, float64) float64 { return 0 }
		Expect(e.ExpandFuelBlocks()).To(MatchError(ErrInvalidFactor))
	})

	It("rejects non-finite temperatures", func() {
		bad.temp = math.Inf(1)
		Expect(e.ExpandFuelBlocks()).To(MatchError(ErrInvalidTemperature))
	})

	It("rejects non-finite input temperatures when cold temperature is disabled", func() {
		bad.input = math.NaN()
		e = mustEngine(core, Config{})
		Expect(e.ExpandFuelBlocks()).To(MatchError(ErrInvalidTemperature))
	})

	It("rejects negative beginning-of-life heights", func() {
		blk := newBlock("neg", -1, fixedFactor("f", 1))
		e = mustEngine(newCore(newAssembly("003", blk)), DefaultConfig())
		Expect(e.ExpandFuelBlocks()).To(MatchError(ErrInvalidGeometry))
	})
})

var _ = Describe("GenerateAssemblyReport", func() {
	It("reports cold height, warm height, growth and strain", func() {
		asm := newAssembly("001", newBlock("fuel", 100, fixedFactor("f", 1.05)))
		e := mustEngine(newCore(asm), DefaultConfig())
		Expect(e.ExpandFuelBlocks()).To(Succeed())

		var sink report.Collector
		Expect(e.GenerateAssemblyReport(&sink)).To(Succeed())
		Expect(sink.Rows).To(Equal([]report.Row{{
			Label:     "Assembly 001",
			ColdCM:    100.0,
			WarmCM:    105.0,
			GrowthCM:  5.0,
			StrainPct: 5.0,
		}}))
	})

	It("sums every fuel block of the assembly", func() {
		asm := newAssembly("A1",
			newBlock("lower", 40, fixedFactor("f", 1.01)),
			newBlock("upper", 60, fixedFactor("f", 1.02)),
		)
		e := mustEngine(newCore(asm), DefaultConfig())
		Expect(e.ExpandFuelBlocks()).To(Succeed())

		var sink report.Collector
		Expect(e.GenerateAssemblyReport(&sink)).To(Succeed())
		row := sink.Rows[0]
		Expect(row.ColdCM).To(Equal(100.0))
		Expect(row.WarmCM).To(Equal(101.6))
		Expect(row.GrowthCM).To(Equal(1.6))
		Expect(row.StrainPct).To(Equal(1.6))
	})

	It("uses live block heights rather than the accumulator", func() {
		block := newBlock("fuel", 100, fixedFactor("f", 1.0))
		asm := newAssembly("001", block)
		e := mustEngine(newCore(asm), DefaultConfig())
		Expect(e.ExpandFuelBlocks()).To(Succeed())

		block.height = 110
		var sink report.Collector
		Expect(e.GenerateAssemblyReport(&sink)).To(Succeed())
		Expect(sink.Rows[0].GrowthCM).To(Equal(10.0))
		Expect(e.TotalAssemblyGrowth(asm)).To(BeZero())
	})

	It("isolates degenerate assemblies and itemizes the failure", func() {
		core := newCore(
			newAssembly("001", newBlock("fuel", 100, fixedFactor("f", 1.05))),
			newAssembly("002",
				newBlock("zero-a", 0, fixedFactor("f", 1.05)),
				newBlock("zero-b", 0, fixedFactor("f", 1.05)),
			),
			newAssembly("003", newBlock("fuel", 50, fixedFactor("f", 1.0))),
		)
		e := mustEngine(core, DefaultConfig())
		Expect(e.ExpandFuelBlocks()).To(Succeed())

		var sink report.Collector
		err := e.GenerateAssemblyReport(&sink)
		Expect(err).To(MatchError(ErrInvalidGeometry))

		errs := multierr.Errors(err)
		Expect(errs).To(HaveLen(1))
		var ae *AssemblyError
		Expect(errors.As(errs[0], &ae)).To(BeTrue())
		Expect(ae.Location).To(Equal("002"))

		Expect(sink.Rows).To(HaveLen(2))
		Expect(sink.Rows[0].Label).To(Equal("Assembly 001"))
		Expect(sink.Rows[1].Label).To(Equal("Assembly 003"))
		for _, r := range sink.Rows {
			Expect(math.IsNaN(r.StrainPct) || math.IsInf(r.StrainPct, 0)).To(BeFalse())
		}
	})

	It("keeps writing rows after a sink failure", func() {
		core := newCore(
			newAssembly("001", newBlock("fuel", 10, fixedFactor("f", 1))),
			newAssembly("002", newBlock("fuel", 10, fixedFactor("f", 1))),
		)
		e := mustEngine(core, DefaultConfig())

		full := errors.New("sink full")
		var written []string
		err := e.GenerateAssemblyReport(report.SinkFunc(func(r report.Row) error {
			if r.Label == "Assembly 001" {
				return full
			}
			written = append(written, r.Label)
			return nil
		}))
		Expect(err).To(MatchError(full))
		Expect(written).To(Equal([]string{"Assembly 002"}))
	})
})
