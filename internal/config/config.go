package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/arte/internal/expansion"
	"github.com/san-kum/arte/internal/materials"
	"github.com/san-kum/arte/internal/reactor"
	"github.com/san-kum/arte/internal/sim"
)

var ErrInvalidConfig = errors.New("config: invalid core definition")

const (
	DefaultCycles    = 1
	DefaultColdTempC = expansion.DefaultColdTemperatureC
)

type Config struct {
	Name string `yaml:"name"`
	// ColdTemperature seeds every component's previous temperature. null
	// makes each component start from its own input temperature.
	ColdTemperature   *float64         `yaml:"cold_temperature"`
	AxialMesh         bool             `yaml:"axial_mesh"`
	ReferenceAssembly string           `yaml:"reference_assembly,omitempty"`
	Schedule          ScheduleConfig   `yaml:"schedule"`
	Assemblies        []AssemblyConfig `yaml:"assemblies"`
}

type ScheduleConfig struct {
	Cycles         int       `yaml:"cycles"`
	PowerFractions []float64 `yaml:"power_fractions"`
}

type AssemblyConfig struct {
	Location string        `yaml:"location"`
	Flags    []string      `yaml:"flags,omitempty"`
	Blocks   []BlockConfig `yaml:"blocks"`
}

type BlockConfig struct {
	Name       string            `yaml:"name"`
	Flags      []string          `yaml:"flags"`
	Height     float64           `yaml:"height"`
	Components []ComponentConfig `yaml:"components,omitempty"`
}

type ComponentConfig struct {
	Name     string   `yaml:"name"`
	Flags    []string `yaml:"flags"`
	Material string   `yaml:"material"`
	TInput   float64  `yaml:"t_input"`
	THot     float64  `yaml:"t_hot"`
}

func coldTemp(t float64) *float64 { return &t }

// base holds the defaults a loaded file starts from.
func base() *Config {
	return &Config{
		ColdTemperature: coldTemp(DefaultColdTempC),
		Schedule: ScheduleConfig{
			Cycles:         DefaultCycles,
			PowerFractions: []float64{1.0},
		},
	}
}

// DefaultConfig is the single-pin core.
func DefaultConfig() *Config {
	return GetPreset("single-pin")
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := base()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy of c.
func (c *Config) Clone() (*Config, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidConfig)
	}
	if len(c.Assemblies) == 0 {
		return fmt.Errorf("%w: no assemblies", ErrInvalidConfig)
	}
	if err := c.SimSchedule().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	seen := make(map[string]bool, len(c.Assemblies))
	for _, a := range c.Assemblies {
		if a.Location == "" {
			return fmt.Errorf("%w: assembly without location", ErrInvalidConfig)
		}
		if seen[a.Location] {
			return fmt.Errorf("%w: duplicate assembly %s", ErrInvalidConfig, a.Location)
		}
		seen[a.Location] = true

		for _, b := range a.Blocks {
			if b.Height < 0 {
				return fmt.Errorf("%w: assembly %s block %s has negative height", ErrInvalidConfig, a.Location, b.Name)
			}
			for _, comp := range b.Components {
				if comp.Material == "" {
					return fmt.Errorf("%w: assembly %s block %s component %s has no material",
						ErrInvalidConfig, a.Location, b.Name, comp.Name)
				}
			}
		}
	}

	if c.ReferenceAssembly != "" && !seen[c.ReferenceAssembly] {
		return fmt.Errorf("%w: reference assembly %s not defined", ErrInvalidConfig, c.ReferenceAssembly)
	}
	return nil
}

// Build validates the definition and assembles the reactor core.
func (c *Config) Build(reg *materials.Registry) (*reactor.Core, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = materials.NewRegistry()
	}

	core := reactor.NewCore(c.Name)
	for _, ac := range c.Assemblies {
		aflags, err := reactor.ParseFlags(ac.Flags)
		if err != nil {
			return nil, fmt.Errorf("assembly %s: %w", ac.Location, err)
		}
		asm := reactor.NewAssembly(ac.Location, aflags)

		for _, bc := range ac.Blocks {
			bflags, err := reactor.ParseFlags(bc.Flags)
			if err != nil {
				return nil, fmt.Errorf("assembly %s block %s: %w", ac.Location, bc.Name, err)
			}
			blk, err := reactor.NewBlock(bc.Name, bflags, bc.Height)
			if err != nil {
				return nil, err
			}

			for _, cc := range bc.Components {
				cflags, err := reactor.ParseFlags(cc.Flags)
				if err != nil {
					return nil, fmt.Errorf("assembly %s block %s component %s: %w", ac.Location, bc.Name, cc.Name, err)
				}
				m, err := reg.Get(cc.Material)
				if err != nil {
					return nil, fmt.Errorf("assembly %s block %s component %s: %w", ac.Location, bc.Name, cc.Name, err)
				}
				blk.Add(reactor.NewComponent(cc.Name, cflags, m, cc.TInput, cc.THot))
			}
			asm.Add(blk)
		}
		core.Add(asm)
	}

	if c.ReferenceAssembly != "" {
		if err := core.SetReferenceAssembly(c.ReferenceAssembly); err != nil {
			return nil, err
		}
	}
	if c.AxialMesh {
		core.EnableAxialMesh()
	}
	return core, nil
}

func (c *Config) EngineConfig() expansion.Config {
	if c.ColdTemperature == nil {
		return expansion.Config{}
	}
	return expansion.Config{ColdTemperatureC: coldTemp(*c.ColdTemperature)}
}

func (c *Config) SimSchedule() sim.Schedule {
	fractions := make([]float64, len(c.Schedule.PowerFractions))
	copy(fractions, c.Schedule.PowerFractions)
	return sim.Schedule{Cycles: c.Schedule.Cycles, PowerFractions: fractions}
}
