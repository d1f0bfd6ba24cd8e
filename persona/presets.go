package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPresets reads a YAML file mapping preset names to personas:
//
//	default:
//	  name: Parley
//	  style: system
//	butler:
//	  name: Jeeves
//	  style: dialog
func LoadPresets(path string) (map[string]Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	presets := map[string]Persona{}
	if err := yaml.Unmarshal(raw, &presets); err != nil {
		return nil, fmt.Errorf("parse persona presets: %w", err)
	}
	for key, p := range presets {
		presets[key] = p.normalized()
	}
	return presets, nil
}

// Preset resolves name from presets, falling back to a normalized zero
// persona when the name is unknown or presets is nil.
func Preset(presets map[string]Persona, name string) Persona {
	if p, ok := presets[name]; ok {
		return p
	}
	return Persona{}.normalized()
}
