package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Wait kinds understood by a scenario.
const (
	WaitTimer  = "timer"
	WaitNever  = "never"
	WaitManual = "manual"
)

// Scenario modes.
const (
	ModeAll  = "all"
	ModeRace = "race"
)

// Scenario is a set of waits driven together through one reactor.
type Scenario struct {
	Name    string        `yaml:"name" validate:"required"`
	Mode    string        `yaml:"mode" validate:"omitempty,oneof=all race"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	Waits   []Wait        `yaml:"waits" validate:"required,min=1,unique=Name,dive"`
}

// Wait is one pollable in a scenario.
//
// A timer wait is ready once Duration has elapsed. A never wait is never
// ready. A manual wait reports not ready for its first After checks.
type Wait struct {
	Name     string        `yaml:"name" validate:"required"`
	Type     string        `yaml:"type" validate:"required,oneof=timer never manual"`
	Duration time.Duration `yaml:"duration" validate:"required_if=Type timer,gte=0"`
	After    int           `yaml:"after" validate:"gte=0"`
}

var validate = validator.New()

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if sc.Mode == "" {
		sc.Mode = ModeAll
	}
	if err := validate.Struct(&sc); err != nil {
		return nil, fmt.Errorf("scenario %q validation failed: %w", sc.Name, err)
	}
	return &sc, nil
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseScenario(f)
}
