package config

import (
	"fmt"
	"sort"
)

var Presets = map[string]func() *Config{
	"single-pin": singlePin,
	"small-core": smallCore,
	"power-ramp": powerRamp,
	"oxide-pin":  oxidePin,
	"degenerate": degenerate,
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fuelPin(name, material string, tInput, tHot float64) ComponentConfig {
	return ComponentConfig{Name: name, Flags: []string{"fuel"}, Material: material, TInput: tInput, THot: tHot}
}

func cladding(tHot float64) ComponentConfig {
	return ComponentConfig{Name: "clad", Flags: []string{"clad"}, Material: "HT9", TInput: 20, THot: tHot}
}

func singlePin() *Config {
	return &Config{
		Name:            "single-pin",
		ColdTemperature: coldTemp(DefaultColdTempC),
		Schedule:        ScheduleConfig{Cycles: 1, PowerFractions: []float64{1.0}},
		Assemblies: []AssemblyConfig{{
			Location: "001",
			Flags:    []string{"fuel"},
			Blocks: []BlockConfig{{
				Name:       "TestBlock",
				Flags:      []string{"fuel"},
				Height:     2.0,
				Components: []ComponentConfig{fuelPin("fuel", "UZr", 20, 600)},
			}},
		}},
	}
}

// fuelColumn stacks a shield, three fuel blocks and a plenum. Fuel runs
// hotter toward the top of the column.
func fuelColumn(location string, peakC float64) AssemblyConfig {
	blocks := []BlockConfig{{
		Name: location + "-shield", Flags: []string{"shield"}, Height: 30,
		Components: []ComponentConfig{{Name: "shield", Flags: []string{"shield"}, Material: "HT9", TInput: 20, THot: 380}},
	}}
	for i, frac := range []float64{0.8, 0.95, 1.0} {
		hot := peakC * frac
		blocks = append(blocks, BlockConfig{
			Name:   fmt.Sprintf("%s-fuel%d", location, i+1),
			Flags:  []string{"fuel"},
			Height: 20,
			Components: []ComponentConfig{
				fuelPin("fuel", "UZr", 20, hot),
				cladding(hot - 80),
				{Name: "coolant", Flags: []string{"coolant"}, Material: "inert", TInput: 20, THot: hot - 120},
			},
		})
	}
	blocks = append(blocks, BlockConfig{
		Name: location + "-plenum", Flags: []string{"plenum"}, Height: 40,
		Components: []ComponentConfig{cladding(peakC - 100)},
	})
	return AssemblyConfig{Location: location, Flags: []string{"fuel"}, Blocks: blocks}
}

func smallCore() *Config {
	reflector := AssemblyConfig{
		Location: "R1",
		Flags:    []string{"reflector"},
		Blocks: []BlockConfig{{
			Name: "R1-reflector", Flags: []string{"reflector"}, Height: 130,
			Components: []ComponentConfig{{Name: "reflector", Flags: []string{"reflector"}, Material: "HT9", TInput: 20, THot: 360}},
		}},
	}
	return &Config{
		Name:              "small-core",
		ColdTemperature:   coldTemp(DefaultColdTempC),
		AxialMesh:         true,
		ReferenceAssembly: "A1",
		Schedule:          ScheduleConfig{Cycles: 3, PowerFractions: []float64{0.25, 0.5, 0.75, 1.0}},
		Assemblies: []AssemblyConfig{
			fuelColumn("A1", 650),
			fuelColumn("B1", 600),
			fuelColumn("B2", 560),
			reflector,
		},
	}
}

func powerRamp() *Config {
	blocks := make([]BlockConfig, 4)
	for i := range blocks {
		hot := 500.0 + 50.0*float64(i)
		blocks[i] = BlockConfig{
			Name:       fmt.Sprintf("ramp-fuel%d", i+1),
			Flags:      []string{"fuel"},
			Height:     25,
			Components: []ComponentConfig{fuelPin("fuel", "UZr", 20, hot), cladding(hot - 80)},
		}
	}
	return &Config{
		Name:            "power-ramp",
		ColdTemperature: coldTemp(DefaultColdTempC),
		AxialMesh:       true,
		Schedule: ScheduleConfig{
			Cycles:         2,
			PowerFractions: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		Assemblies: []AssemblyConfig{{Location: "P1", Flags: []string{"fuel"}, Blocks: blocks}},
	}
}

// oxidePin has no cold temperature: each component starts from its
// fabrication temperature.
func oxidePin() *Config {
	return &Config{
		Name:     "oxide-pin",
		Schedule: ScheduleConfig{Cycles: 1, PowerFractions: []float64{0.5, 1.0}},
		Assemblies: []AssemblyConfig{{
			Location: "X1",
			Flags:    []string{"fuel"},
			Blocks: []BlockConfig{{
				Name:   "oxide",
				Flags:  []string{"fuel"},
				Height: 50,
				Components: []ComponentConfig{
					fuelPin("pellet", "UO2", 300, 1200),
					fuelPin("absorber", "B4C", 300, 700),
				},
			}},
		}},
	}
}

// degenerate pairs a healthy assembly with one whose fuel has no height,
// so the report lists one row and one failure.
func degenerate() *Config {
	cfg := singlePin()
	cfg.Name = "degenerate"
	cfg.Assemblies = append(cfg.Assemblies, AssemblyConfig{
		Location: "002",
		Flags:    []string{"fuel"},
		Blocks: []BlockConfig{{
			Name:       "EmptyBlock",
			Flags:      []string{"fuel"},
			Height:     0,
			Components: []ComponentConfig{fuelPin("fuel", "UZr", 20, 600)},
		}},
	})
	return cfg
}
