package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type cliConfig struct {
	backend          string
	deviceIndex      int
	tcpAddr          string
	maxTransfer      int
	tunerXtal        uint
	timeout          time.Duration
	logLevel         string
	logFormat        string
	mockManufacturer string
	mockProduct      string
	sshHost          string
	sshUser          string
	sshPassword      string
	sshKeyPath       string
	sshPort          int
	sshDeviceIndex   int
}

// fileConfig is the optional YAML defaults file.
type fileConfig struct {
	Backend     string        `yaml:"backend"`
	DeviceIndex int           `yaml:"device_index"`
	TCPAddr     string        `yaml:"tcp_addr"`
	MaxTransfer int           `yaml:"max_transfer"`
	TunerXtal   uint          `yaml:"tuner_xtal"`
	Timeout     time.Duration `yaml:"timeout"`
	Log         LogConfig     `yaml:"log"`
	Mock        MockConfig    `yaml:"mock"`
	SSH         SSHConfig     `yaml:"ssh"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MockConfig struct {
	Manufacturer string `yaml:"manufacturer"`
	Product      string `yaml:"product"`
}

type SSHConfig struct {
	Host        string `yaml:"host"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	KeyPath     string `yaml:"key_path"`
	Port        int    `yaml:"port"`
	DeviceIndex int    `yaml:"device_index"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Backend:     "usb",
		TCPAddr:     "127.0.0.1:1234",
		MaxTransfer: 64,
		Timeout:     5 * time.Second,
		Log:         LogConfig{Level: "info", Format: "text"},
		Mock:        MockConfig{Manufacturer: "RTLSDRBlog", Product: "Blog V4"},
	}
}

// loadConfig reads YAML defaults from path. A missing file yields the
// built-in defaults.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return fileConfig{}, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return fileConfig{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// configPath finds the YAML file from -config or RTLCTL_CONFIG before the
// full flag set is parsed, since the file supplies that set's defaults.
func configPath(args []string, lookup func(string) (string, bool)) string {
	path := envString(lookup, "RTLCTL_CONFIG", "rtlctl.yaml")
	for i, a := range args {
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case len(a) > 8 && a[:8] == "-config=":
			return a[8:]
		case len(a) > 9 && a[:9] == "--config=":
			return a[9:]
		}
	}
	return path
}

func parseConfig(args []string, lookup func(string) (string, bool), defaults fileConfig) (cliConfig, []string, error) {
	cfg := cliConfig{}
	fs := flag.NewFlagSet("rtlctl", flag.ContinueOnError)
	fs.String("config", "", "YAML file with default settings")
	fs.StringVar(&cfg.backend, "backend", envString(lookup, "RTLCTL_BACKEND", defaults.Backend), "Dongle backend (mock|usb|tcp)")
	fs.IntVar(&cfg.deviceIndex, "device", envInt(lookup, "RTLCTL_DEVICE", defaults.DeviceIndex), "USB device index")
	fs.StringVar(&cfg.tcpAddr, "tcp-addr", envString(lookup, "RTLCTL_TCP_ADDR", defaults.TCPAddr), "rtl_tcp server address")
	fs.IntVar(&cfg.maxTransfer, "max-transfer", envInt(lookup, "RTLCTL_MAX_TRANSFER", defaults.MaxTransfer), "Largest I2C transfer in bytes")
	fs.UintVar(&cfg.tunerXtal, "tuner-xtal", envUint(lookup, "RTLCTL_TUNER_XTAL", defaults.TunerXtal), "Tuner crystal override in Hz (0 = from model)")
	fs.DurationVar(&cfg.timeout, "timeout", envDuration(lookup, "RTLCTL_TIMEOUT", defaults.Timeout), "Per-command timeout")
	fs.StringVar(&cfg.logLevel, "log-level", envString(lookup, "RTLCTL_LOG_LEVEL", defaults.Log.Level), "Log level (debug|info|warn|error)")
	fs.StringVar(&cfg.logFormat, "log-format", envString(lookup, "RTLCTL_LOG_FORMAT", defaults.Log.Format), "Log format (text|json)")
	fs.StringVar(&cfg.mockManufacturer, "mock-manufacturer", envString(lookup, "RTLCTL_MOCK_MANUFACTURER", defaults.Mock.Manufacturer), "Manufacturer string of the mock dongle")
	fs.StringVar(&cfg.mockProduct, "mock-product", envString(lookup, "RTLCTL_MOCK_PRODUCT", defaults.Mock.Product), "Product string of the mock dongle")
	fs.StringVar(&cfg.sshHost, "ssh-host", envString(lookup, "RTLCTL_SSH_HOST", defaults.SSH.Host), "Host running rtl_biast for lines rtl_tcp cannot drive")
	fs.StringVar(&cfg.sshUser, "ssh-user", envString(lookup, "RTLCTL_SSH_USER", defaults.SSH.User), "SSH user")
	fs.StringVar(&cfg.sshPassword, "ssh-password", envString(lookup, "RTLCTL_SSH_PASSWORD", defaults.SSH.Password), "SSH password")
	fs.StringVar(&cfg.sshKeyPath, "ssh-key", envString(lookup, "RTLCTL_SSH_KEY", defaults.SSH.KeyPath), "SSH private key path")
	fs.IntVar(&cfg.sshPort, "ssh-port", envInt(lookup, "RTLCTL_SSH_PORT", defaults.SSH.Port), "SSH port")
	fs.IntVar(&cfg.sshDeviceIndex, "ssh-device", envInt(lookup, "RTLCTL_SSH_DEVICE", defaults.SSH.DeviceIndex), "Device index on the SSH host")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, nil, err
	}
	if cfg.timeout <= 0 {
		return cliConfig{}, nil, fmt.Errorf("timeout must be positive, got %s", cfg.timeout)
	}
	return cfg, fs.Args(), nil
}

func envString(lookup func(string) (string, bool), key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(lookup func(string) (string, bool), key string, def int) int {
	if v, ok := lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envUint(lookup func(string) (string, bool), key string, def uint) uint {
	if v, ok := lookup(key); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint(n)
		}
	}
	return def
}

func envDuration(lookup func(string) (string, bool), key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
