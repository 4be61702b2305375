package seed

import (
	"embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yml
var presetFS embed.FS

// Preset sizes a seed run. Rates are probabilities in [0, 1].
type Preset struct {
	Name string `yaml:"name"`
	// Seed fixes the fake data generator. Zero picks a time-based seed.
	Seed                    int64    `yaml:"seed"`
	Users                   int      `yaml:"users"`
	SkillsPerUser           int      `yaml:"skills_per_user"`
	ProposalsPerUser        int      `yaml:"proposals_per_user"`
	ApplicationsPerProposal int      `yaml:"applications_per_proposal"`
	AcceptRate              float64  `yaml:"accept_rate"`
	CompleteRate            float64  `yaml:"complete_rate"`
	ReviewRate              float64  `yaml:"review_rate"`
	MaxDays                 int      `yaml:"max_days"`
	Skills                  []string `yaml:"skills"`
	// Clean wipes lifecycle tables before seeding.
	Clean bool `yaml:"clean"`
}

// LoadPreset returns one of the built-in presets (small, demo).
func LoadPreset(name string) (*Preset, error) {
	raw, err := presetFS.ReadFile("presets/" + name + ".yml")
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	return parsePreset(raw)
}

// LoadPresetFile reads a preset from a YAML file on disk.
func LoadPresetFile(path string) (*Preset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	return parsePreset(raw)
}

func parsePreset(raw []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	if p.MaxDays <= 0 {
		p.MaxDays = 90
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate rejects presets the seeder cannot satisfy.
func (p *Preset) Validate() error {
	switch {
	case p.Users < 2:
		return errors.New("preset needs at least 2 users")
	case len(p.Skills) < 2:
		return errors.New("preset needs at least 2 skills")
	case p.SkillsPerUser < 1 || p.SkillsPerUser > len(p.Skills):
		return fmt.Errorf("skills_per_user must be between 1 and %d", len(p.Skills))
	case p.ProposalsPerUser < 0 || p.ApplicationsPerProposal < 0:
		return errors.New("counts must not be negative")
	case p.ApplicationsPerProposal > p.Users-1:
		return fmt.Errorf("applications_per_proposal must be at most %d", p.Users-1)
	}
	for name, r := range map[string]float64{
		"accept_rate":   p.AcceptRate,
		"complete_rate": p.CompleteRate,
		"review_rate":   p.ReviewRate,
	} {
		if r < 0 || r > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	return nil
}
