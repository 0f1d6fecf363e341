package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Network  NetworkConfig  `mapstructure:"network"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Hardware HardwareConfig `mapstructure:"hardware"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// NetworkConfig contains the lighting-protocol listener settings
type NetworkConfig struct {
	ArtNetPort        int    `mapstructure:"artnet_port"`
	SACNPort          int    `mapstructure:"sacn_port"`
	DDPPort           int    `mapstructure:"ddp_port"`
	MulticastInterface string `mapstructure:"multicast_interface"`
	BroadcastEnabled  bool   `mapstructure:"broadcast_enabled"`
	DiagnosticUART    string `mapstructure:"diagnostic_uart"`
	DiagnosticUARTBaud int   `mapstructure:"diagnostic_uart_baud"`
}

// StorageConfig contains settings-store (flash-image) settings
type StorageConfig struct {
	Path             string `mapstructure:"path"`
	JournalSectorKB  int    `mapstructure:"journal_sector_kb"`
	SQLiteExportPath string `mapstructure:"sqlite_export_path"`
}

// LoggerConfig contains logging settings
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	LogDir string `mapstructure:"log_dir"`
}

// HardwareConfig names the physical peripherals the pixel/analog stages
// drive. An empty bus/pin name leaves that channel without a real
// transport attached, so a dev machine with no periph.io drivers
// available still runs the full protocol/settings/HTTP stack.
type HardwareConfig struct {
	// SPIBus names one periph.io SPI bus per strip channel (e.g.
	// "/dev/spidev0.0"), indexed by topology.StripChannels.
	SPIBus []string `mapstructure:"spi_bus"`
	// PWMPins names one periph.io GPIO pin per analog PWM channel,
	// indexed by analog.TerminalCount * analog.ComponentCount
	// (terminal-major: terminal 0's R,G,B,WW,WHW then terminal 1's).
	PWMPins []string `mapstructure:"pwm_pins"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath(getConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults
	}

	v.SetEnvPrefix("LIGHTKRAKEN")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 80)

	v.SetDefault("network.artnet_port", 6454)
	v.SetDefault("network.sacn_port", 5568)
	v.SetDefault("network.ddp_port", 4048)
	v.SetDefault("network.multicast_interface", "")
	v.SetDefault("network.broadcast_enabled", true)
	v.SetDefault("network.diagnostic_uart", "")
	v.SetDefault("network.diagnostic_uart_baud", 115200)

	v.SetDefault("storage.path", "./data/lightkraken.kv")
	v.SetDefault("storage.journal_sector_kb", 64)
	v.SetDefault("storage.sqlite_export_path", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.log_dir", "./logs")

	v.SetDefault("hardware.spi_bus", []string{"", ""})
	v.SetDefault("hardware.pwm_pins", []string{"", "", "", "", "", "", "", "", "", ""})
}

func getConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".lightkraken")
}
