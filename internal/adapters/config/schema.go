package config

// File represents the structure of the texmk.yaml configuration file.
type File struct {
	Version      string      `yaml:"version"`
	Format       string      `yaml:"format"`
	Compiler     ToolDTO     `yaml:"compiler"`
	Bibliography ToolDTO     `yaml:"bibliography"`
	Index        ToolDTO     `yaml:"index"`
	MaxPasses    *int        `yaml:"maxPasses"`
	MaxAuxRuns   *int        `yaml:"maxAuxRuns"`
	Watch        WatchDTO    `yaml:"watch"`
	Markers      []MarkerDTO `yaml:"markers"`
}

// ToolDTO represents one external tool invocation in the configuration.
type ToolDTO struct {
	Command string   `yaml:"command"`
	Flags   []string `yaml:"flags"`
}

// WatchDTO represents the watch-mode settings.
type WatchDTO struct {
	Debounce string `yaml:"debounce"`
}

// MarkerDTO represents one additional output marker rule.
type MarkerDTO struct {
	Pattern string `yaml:"pattern"`
	Signal  string `yaml:"signal"`
}
