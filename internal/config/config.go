package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server  ServerConfig  `toml:"server"`  // HTTP server settings
	Sources SourcesConfig `toml:"sources"` // Datalink and ADS-B ingest settings
	Engine  EngineConfig  `toml:"engine"`  // Message correlation engine settings
	Filters FiltersConfig `toml:"filters"` // Message display filter settings
	Alerts  AlertsConfig  `toml:"alerts"`  // Alert term matching settings
	Storage StorageConfig `toml:"storage"` // Data persistence settings
	MQTT    MQTTConfig    `toml:"mqtt"`    // Optional MQTT output settings
	Logging LoggingConfig `toml:"logging"` // Application logging settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // HTTP port for the API and WebSocket endpoint
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout, recommended for streaming)
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	StaticFilesDir   string `toml:"static_files_dir"`      // Directory to serve the dashboard from (e.g., "www"); empty disables static serving
}

// SourcesConfig contains settings for the inbound message and position feeds
type SourcesConfig struct {
	// Datalink UDP listeners. The ports follow the upstream decoder
	// convention: acarsdec sends to 5550, vdlm2dec to 5555, hfdl to 5556.
	ACARS DatalinkSourceConfig `toml:"acars"`
	VDLM2 DatalinkSourceConfig `toml:"vdlm2"`
	HFDL  DatalinkSourceConfig `toml:"hfdl"`

	// ADS-B position feed (tar1090/readsb style aircraft.json)
	ADSB ADSBSourceConfig `toml:"adsb"`
}

// DatalinkSourceConfig configures one UDP JSON listener
type DatalinkSourceConfig struct {
	Enabled bool `toml:"enabled"` // Whether to start this listener
	Port    int  `toml:"port"`    // UDP port to listen on
}

// ADSBSourceConfig configures the ADS-B position poller
type ADSBSourceConfig struct {
	Enabled           bool   `toml:"enabled"`                // Whether to poll for ADS-B positions
	SourceURL         string `toml:"source_url"`             // URL of the aircraft.json endpoint (e.g., http://tar1090/data/aircraft.json)
	FetchIntervalSecs int    `toml:"fetch_interval_seconds"` // How often to fetch new position data (in seconds)
}

// EngineConfig contains the message correlation engine settings. The
// defaults mirror the values the dashboard has always shipped with.
type EngineConfig struct {
	MaxPlanes             int     `toml:"max_planes"`             // Bound on the live plane registry (default: 50)
	MaxPositionHistory    int     `toml:"max_position_history"`   // Bound on the per-plane position history ring (default: 50)
	MultipartWindowSecs   float64 `toml:"multipart_window_secs"`  // Time window for multi-part message continuation matching (default: 8.0)
	DeriveMagneticHeading bool    `toml:"derive_magnetic_heading"` // Derive magnetic heading from true heading via WMM when the feed omits it
}

// FiltersConfig contains message display filter settings
type FiltersConfig struct {
	ExcludeEmptyMessages bool     `toml:"exclude_empty_messages"` // Hide messages that carry no text/data/flight-plan/position fields
	ExcludedLabels       []string `toml:"excluded_labels"`        // Message labels to hide (e.g., ["SQ", "Q0"])
}

// AlertsConfig contains alert term matching settings
type AlertsConfig struct {
	Terms       []string `toml:"terms"`        // Terms matched against message text, callsign, tail, and hex
	IgnoreTerms []string `toml:"ignore_terms"` // Substrings that suppress a text match (e.g., noise phrases)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	SQLiteBasePath string `toml:"sqlite_base_path"` // Base path for SQLite database files (actual filename is generated as acarshub-YYYY-MM-DD.db)
}

// MQTTConfig contains optional MQTT mirroring configuration
type MQTTConfig struct {
	Enabled  bool   `toml:"enabled"`   // Whether to publish processed messages to an MQTT broker
	Broker   string `toml:"broker"`    // Broker URL (e.g., tcp://localhost:1883)
	Topic    string `toml:"topic"`     // Topic prefix; the protocol name is appended (e.g., acarshub/acars)
	ClientID string `toml:"client_id"` // MQTT client identifier
	Username string `toml:"username"`  // Broker username (optional)
	Password string `toml:"password"`  // Broker password (optional)
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// Default returns a configuration populated with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			Host:             "0.0.0.0",
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 0,
			IdleTimeoutSecs:  60,
			StaticFilesDir:   "www",
		},
		Sources: SourcesConfig{
			ACARS: DatalinkSourceConfig{Enabled: true, Port: 5550},
			VDLM2: DatalinkSourceConfig{Enabled: true, Port: 5555},
			HFDL:  DatalinkSourceConfig{Enabled: false, Port: 5556},
			ADSB: ADSBSourceConfig{
				Enabled:           false,
				FetchIntervalSecs: 5,
			},
		},
		Engine: EngineConfig{
			MaxPlanes:             50,
			MaxPositionHistory:    50,
			MultipartWindowSecs:   8.0,
			DeriveMagneticHeading: true,
		},
		Storage: StorageConfig{
			SQLiteBasePath: "data",
		},
		MQTT: MQTTConfig{
			Topic:    "acarshub",
			ClientID: "acarshub-server",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads the configuration from the given TOML file, applying
// defaults for any omitted fields
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// LoadWithFallback loads configuration from the given path, or searches
// the conventional locations (configs/config.toml, then config.toml in
// the working directory) when no path is provided. A missing file is not
// an error; defaults are used.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	candidates := []string{
		filepath.Join("configs", "config.toml"),
		"config.toml",
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}
	}

	return Default(), nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	for name, src := range map[string]DatalinkSourceConfig{
		"acars": c.Sources.ACARS,
		"vdlm2": c.Sources.VDLM2,
		"hfdl":  c.Sources.HFDL,
	} {
		if src.Enabled && (src.Port <= 0 || src.Port > 65535) {
			return fmt.Errorf("invalid %s listener port: %d", name, src.Port)
		}
	}

	if c.Sources.ADSB.Enabled {
		if c.Sources.ADSB.SourceURL == "" {
			return fmt.Errorf("adsb source enabled but source_url is empty")
		}
		if c.Sources.ADSB.FetchIntervalSecs <= 0 {
			return fmt.Errorf("invalid adsb fetch interval: %d", c.Sources.ADSB.FetchIntervalSecs)
		}
	}

	if c.Engine.MaxPlanes <= 0 {
		return fmt.Errorf("engine max_planes must be positive, got %d", c.Engine.MaxPlanes)
	}
	if c.Engine.MaxPositionHistory <= 0 {
		return fmt.Errorf("engine max_position_history must be positive, got %d", c.Engine.MaxPositionHistory)
	}
	if c.Engine.MultipartWindowSecs <= 0 {
		return fmt.Errorf("engine multipart_window_secs must be positive, got %f", c.Engine.MultipartWindowSecs)
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt enabled but broker is empty")
	}

	return nil
}
