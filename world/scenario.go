package world

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/brensch/chainplan/params"
)

// Scenario is the on-disk form of a snapshot: the world itself plus
// optional parameter overrides.
type Scenario struct {
	Name        string              `yaml:"name"`
	Server      params.Server       `yaml:"server"`
	PlayerTypes []params.PlayerType `yaml:"player_types"`
	World       `yaml:",inline"`
}

// LoadScenario reads a YAML scenario and returns the prepared world.
func LoadScenario(path string) (*World, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrap(err, "read scenario")
	}
	return ParseScenario(b)
}

// ParseScenario decodes a YAML scenario. Server fields absent from the file
// keep their default values.
func ParseScenario(b []byte) (*World, string, error) {
	sc := Scenario{Server: params.DefaultServer()}
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return nil, "", errors.Wrap(err, "decode scenario")
	}
	w := sc.World
	if err := w.Prepare(params.NewSet(sc.Server, sc.PlayerTypes...)); err != nil {
		return nil, sc.Name, errors.Wrapf(err, "scenario %q", sc.Name)
	}
	return &w, sc.Name, nil
}
