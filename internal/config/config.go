// Package config loads settings from CLI flags, environment variables and a
// TOML file. Priority: CLI flags > env vars > TOML file > defaults.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const DefaultConfigPath = "tacticalboard.toml"

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Client  ClientConfig  `toml:"client"`
	Export  ExportConfig  `toml:"export"`
	Maps    []MapConfig   `toml:"maps"`
	Logging LoggingConfig `toml:"logging"`

	// Args holds positional arguments left after flag parsing.
	Args []string `toml:"-"`
}

type ServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Advertise bool   `toml:"advertise"` // announce over mDNS
}

type StorageConfig struct {
	Type string `toml:"type"` // "memory", "sqlite", "postgresql"
	Path string `toml:"path"` // SQLite file path
	URL  string `toml:"url"`  // PostgreSQL connection URL
}

// ClientConfig is used by the GUI when talking to a project server.
type ClientConfig struct {
	Server  string   `toml:"server"` // ws://host:port/ws; empty means discover
	User    string   `toml:"user"`
	Timeout Duration `toml:"timeout"`
}

type ExportConfig struct {
	Watermark      string `toml:"watermark"`
	LabelPanel     bool   `toml:"label_panel"`
	WatermarkPanel bool   `toml:"watermark_panel"`
	Cover          bool   `toml:"cover"`
	Title          string `toml:"title"`
	Subtitle       string `toml:"subtitle"`
}

// MapConfig names a background image. Image is a file path (relative to
// the config's map directory) or an http(s) URL.
type MapConfig struct {
	Name  string `toml:"name"`
	Image string `toml:"image"`
}

type LoggingConfig struct {
	Verbosity int    `toml:"verbosity"` // 0=quiet, 1=file:line, 2+=debug traces
	File      string `toml:"file"`
}

// Duration is a time.Duration that can be unmarshaled from TOML strings.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// DefaultMaps is the built-in map catalog.
var DefaultMaps = []MapConfig{
	{Name: "Bermuda", Image: "maps/bermuda.png"},
	{Name: "Purgatory", Image: "maps/purgatory.png"},
	{Name: "Kalahari", Image: "maps/kalahari.png"},
	{Name: "Alpine", Image: "maps/alpine.png"},
	{Name: "NeXTerra", Image: "maps/nexterra.png"},
	{Name: "Bermuda Remastered", Image: "maps/bermuda_remastered.png"},
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8888,
			Advertise: true,
		},
		Storage: StorageConfig{
			Type: "sqlite",
			Path: "tacticalboard.db",
		},
		Client: ClientConfig{
			Timeout: Duration(10 * time.Second),
		},
		Export: ExportConfig{
			LabelPanel: true,
			Title:      "Tactical Plan",
		},
		Maps: append([]MapConfig(nil), DefaultMaps...),
	}
}

// verbosityCounter implements flag.Value for counting -v flags.
type verbosityCounter int

func (v *verbosityCounter) String() string   { return strconv.Itoa(int(*v)) }
func (v *verbosityCounter) Set(string) error { *v++; return nil }
func (v *verbosityCounter) IsBoolFlag() bool { return true }

// expandVerbosityFlags turns -vvv into -v -v -v.
func expandVerbosityFlags(args []string) []string {
	result := make([]string, 0, len(args))
	for _, arg := range args {
		if len(arg) > 2 && arg[0] == '-' && arg[1] == 'v' {
			allV := true
			for _, c := range arg[1:] {
				if c != 'v' {
					allV = false
					break
				}
			}
			if allV {
				for range arg[1:] {
					result = append(result, "-v")
				}
				continue
			}
		}
		result = append(result, arg)
	}
	return result
}

// Load builds the configuration for one invocation. name is used for the
// flag set (it appears in usage output).
func Load(name string, args []string) (*Config, error) {
	cfg := DefaultConfig()
	args = expandVerbosityFlags(args)

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", DefaultConfigPath, "Path to TOML config file")

	host := fs.String("host", "", "Server listen address")
	port := fs.Int("port", 0, "Server listen port")
	noAdvertise := fs.Bool("no-mdns", false, "Do not advertise the server over mDNS")

	storage := fs.String("storage", "", "Storage type: memory, sqlite, postgresql")
	storagePath := fs.String("storage-path", "", "SQLite database path")
	storageURL := fs.String("storage-url", "", "PostgreSQL connection URL")

	server := fs.String("server", "", "Project server URL for the GUI (ws://host:port/ws)")
	user := fs.String("user", "", "Default username for the GUI")

	watermark := fs.String("watermark", "", "Watermark text for exports")

	var verbosity verbosityCounter
	fs.Var(&verbosity, "v", "Verbosity level (use -v or -vv)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.loadTOML(*configPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", *configPath, err)
	}
	if len(cfg.Maps) == 0 {
		cfg.Maps = append([]MapConfig(nil), DefaultMaps...)
	}
	cfg.resolveMaps(filepath.Dir(*configPath))

	cfg.applyEnv()
	if cfg.Client.Timeout <= 0 {
		cfg.Client.Timeout = Duration(10 * time.Second)
	}

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *noAdvertise {
		cfg.Server.Advertise = false
	}
	if *storage != "" {
		cfg.Storage.Type = *storage
	}
	if *storagePath != "" {
		cfg.Storage.Path = *storagePath
	}
	if *storageURL != "" {
		cfg.Storage.URL = *storageURL
	}
	if *server != "" {
		cfg.Client.Server = *server
	}
	if *user != "" {
		cfg.Client.User = *user
	}
	if *watermark != "" {
		cfg.Export.Watermark = *watermark
	}
	if verbosity > 0 {
		cfg.Logging.Verbosity = int(verbosity)
	}

	cfg.Args = fs.Args()
	return cfg, nil
}

func (c *Config) loadTOML(path string) error {
	_, err := toml.DecodeFile(path, c)
	return err
}

// resolveMaps makes relative map image paths relative to dir.
func (c *Config) resolveMaps(dir string) {
	for i, m := range c.Maps {
		if m.Image == "" || filepath.IsAbs(m.Image) || isURL(m.Image) || dir == "." {
			continue
		}
		c.Maps[i].Image = filepath.Join(dir, m.Image)
	}
}

func isURL(s string) bool {
	return len(s) > 7 && (s[:7] == "http://" || (len(s) > 8 && s[:8] == "https://"))
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TB_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("TB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("TB_STORAGE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("TB_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("TB_STORAGE_URL"); v != "" {
		c.Storage.URL = v
	}
	if v := os.Getenv("TB_SERVER"); v != "" {
		c.Client.Server = v
	}
	if v := os.Getenv("TB_VERBOSITY"); v != "" {
		if verbosity, err := strconv.Atoi(v); err == nil {
			c.Logging.Verbosity = verbosity
		}
	}
}

// MapNames returns the catalog names in configured order.
func (c *Config) MapNames() []string {
	names := make([]string, len(c.Maps))
	for i, m := range c.Maps {
		names[i] = m.Name
	}
	return names
}

// MapImage returns the image reference for the named map.
func (c *Config) MapImage(name string) (string, bool) {
	for _, m := range c.Maps {
		if m.Name == name {
			return m.Image, true
		}
	}
	return "", false
}

// ListenAddr is the host:port the project server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SetupLogging applies the logging section to the standard logger.
func (c *Config) SetupLogging() error {
	flags := log.LstdFlags
	if c.Logging.Verbosity > 0 {
		flags |= log.Lshortfile
	}
	log.SetFlags(flags)
	if c.Logging.File != "" {
		f, err := os.OpenFile(c.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		log.SetOutput(f)
	}
	return nil
}

// Debug reports whether debug traces should be logged.
func (c *Config) Debug() bool { return c.Logging.Verbosity >= 2 }
