// Package config loads Armature's editor configuration from TOML.
//
// A missing file is not an error: every field has a default, and a file only
// needs to name the values it overrides.
//
//	[editor]
//	joint_radius = 1.0
//
//	[keys]
//	grab = "G"
//
//	[files]
//	structure = "creature.yaml"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
)

// Config is the full editor configuration.
type Config struct {
	Editor EditorConfig `toml:"editor"`
	Keys   KeyConfig    `toml:"keys"`
	Files  FileConfig   `toml:"files"`
	Log    LogConfig    `toml:"log"`
}

// EditorConfig holds the manipulation constants.
type EditorConfig struct {
	JointRadius      float32 `toml:"joint_radius"`
	ConnectorRadius  float32 `toml:"connector_radius"`
	MuscleRadius     float32 `toml:"muscle_radius"`
	ExtendSpeed      float32 `toml:"extend_speed"`
	AxisSpeed        float32 `toml:"axis_speed"`
	DefaultExtension float32 `toml:"default_extension"`
}

// KeyConfig binds editor actions to key or mouse button names.
type KeyConfig struct {
	Confirm   string `toml:"confirm"`
	Cancel    string `toml:"cancel"`
	Delete    string `toml:"delete"`
	Save      string `toml:"save"`
	JointAdd  string `toml:"joint_add"`
	JointLink string `toml:"joint_link"`
	MuscleAdd string `toml:"muscle_add"`
	Grab      string `toml:"grab"`
	Extend    string `toml:"extend"`
	Rotate    string `toml:"rotate"`
	AxisX     string `toml:"axis_x"`
	AxisY     string `toml:"axis_y"`
	AxisZ     string `toml:"axis_z"`
}

// FileConfig names the files the editor reads and writes.
type FileConfig struct {
	Structure string `toml:"structure"`
	Watch     bool   `toml:"watch"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
	Encoding    string `toml:"encoding"` // "json" or "console"
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Editor: EditorConfig{
			JointRadius:      1.0,
			ConnectorRadius:  0.25,
			MuscleRadius:     0.15,
			ExtendSpeed:      0.01,
			AxisSpeed:        0.02,
			DefaultExtension: 2.0,
		},
		Keys: KeyConfig{
			Confirm:   "MouseLeft",
			Cancel:    "Escape",
			Delete:    "Delete",
			Save:      "S",
			JointAdd:  "Tab",
			JointLink: "L",
			MuscleAdd: "M",
			Grab:      "G",
			Extend:    "E",
			Rotate:    "R",
			AxisX:     "X",
			AxisY:     "Y",
			AxisZ:     "Z",
		},
		Files: FileConfig{
			Structure: "pgraph.yaml",
			Watch:     true,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Encode renders cfg as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate reports every out-of-range constant and conflicting binding.
func (c Config) Validate() error {
	var err error
	positive := []struct {
		name string
		v    float32
	}{
		{"editor.joint_radius", c.Editor.JointRadius},
		{"editor.connector_radius", c.Editor.ConnectorRadius},
		{"editor.muscle_radius", c.Editor.MuscleRadius},
		{"editor.extend_speed", c.Editor.ExtendSpeed},
		{"editor.axis_speed", c.Editor.AxisSpeed},
		{"editor.default_extension", c.Editor.DefaultExtension},
	}
	for _, p := range positive {
		if p.v <= 0 {
			err = multierr.Append(err, fmt.Errorf("config: %s must be positive, got %g", p.name, p.v))
		}
	}

	seen := make(map[string]string)
	for action, key := range c.Keys.Bindings() {
		if key == "" {
			err = multierr.Append(err, fmt.Errorf("config: keys.%s is empty", action))
			continue
		}
		if prev, dup := seen[key]; dup {
			a, b := prev, action
			if b < a {
				a, b = b, a
			}
			err = multierr.Append(err, fmt.Errorf("config: %q bound to both %s and %s", key, a, b))
			continue
		}
		seen[key] = action
	}

	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("config: log.encoding must be json or console, got %q", c.Log.Encoding))
	}
	return err
}

// Bindings returns the bindings keyed by action name.
func (k KeyConfig) Bindings() map[string]string {
	return map[string]string{
		"confirm":    k.Confirm,
		"cancel":     k.Cancel,
		"delete":     k.Delete,
		"save":       k.Save,
		"joint_add":  k.JointAdd,
		"joint_link": k.JointLink,
		"muscle_add": k.MuscleAdd,
		"grab":       k.Grab,
		"extend":     k.Extend,
		"rotate":     k.Rotate,
		"axis_x":     k.AxisX,
		"axis_y":     k.AxisY,
		"axis_z":     k.AxisZ,
	}
}
