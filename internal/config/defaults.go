package config

const (
	defaultManifestPath   = "./data/objaverse/manifest.json"
	defaultOutputDir      = "./renders"
	defaultDownloadDir    = "./data/objaverse"
	defaultLogDir         = "~/.local/share/viewforge/logs"
	defaultBlenderPath    = "blender"
	defaultRenderScript   = "./scripts/render_views.py"
	defaultNumWorkers     = 4
	defaultTimeoutSeconds = 60
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Manifest:    defaultManifestPath,
			OutputDir:   defaultOutputDir,
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
		},
		Render: Render{
			BlenderPath:    defaultBlenderPath,
			RenderScript:   defaultRenderScript,
			NumWorkers:     defaultNumWorkers,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
