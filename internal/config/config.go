package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jimezsa/leadcli/internal/models"
	"github.com/joho/godotenv"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	DirName         = "leadcli"
	ConfigFileName  = "config.json"
	ProxiesFileName = "proxies.txt"
	DotEnvFileName  = ".env"

	defaultBaseURL = "https://www.yellowpages.com"
)

// Config holds crawl defaults. Command-line flags override every field.
type Config struct {
	DefaultLocation  string `json:"default_location"`
	BaseURL          string `json:"base_url"`
	TimeoutSeconds   int    `json:"timeout_seconds"`
	DispatchDelayMS  int    `json:"dispatch_delay_ms"`
	Workers          int    `json:"workers"`
	EmailConcurrency int    `json:"email_concurrency"`
	VerifyMX         bool   `json:"verify_mx"`
	PostgresDSN      string `json:"postgres_dsn,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		DefaultLocation:  envString("LEADCLI_DEFAULT_LOCATION", ""),
		BaseURL:          envString("LEADCLI_BASE_URL", defaultBaseURL),
		TimeoutSeconds:   envInt("LEADCLI_TIMEOUT_SECONDS", 10),
		DispatchDelayMS:  envInt("LEADCLI_DISPATCH_DELAY_MS", 1000),
		Workers:          envInt("LEADCLI_WORKERS", 0),
		EmailConcurrency: envInt("LEADCLI_EMAIL_CONCURRENCY", 0),
		VerifyMX:         envBool("LEADCLI_VERIFY_MX", false),
		PostgresDSN:      envString("LEADCLI_POSTGRES_DSN", ""),
	}
}

// CrawlOptions converts the file settings into crawler options.
func (c Config) CrawlOptions() models.CrawlOptions {
	return models.CrawlOptions{
		BaseURL:          c.BaseURL,
		Timeout:          time.Duration(c.TimeoutSeconds) * time.Second,
		DispatchDelay:    time.Duration(c.DispatchDelayMS) * time.Millisecond,
		Workers:          c.Workers,
		EmailConcurrency: c.EmailConcurrency,
	}
}

func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DirName), nil
}

func ConfigPath() (string, error) {
	return inConfigDir(ConfigFileName)
}

func ProxiesPath() (string, error) {
	return inConfigDir(ProxiesFileName)
}

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// LoadDotEnv exports variables from a .env file without overriding the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DotEnvFileName
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadFrom(path)
}

// LoadFrom reads a JSON5 config file over the environment defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Init creates the config dir with a default config.json and an empty
// proxies.txt, leaving existing files untouched. It returns the created paths.
func Init() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return InitDir(dir)
}

func InitDir(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	defaults, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return nil, err
	}

	files := []struct {
		name string
		data []byte
	}{
		{ConfigFileName, append(defaults, '\n')},
		{ProxiesFileName, []byte("# one proxy URL per line\n")},
	}

	var created []string
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, file.data, 0o644); err != nil {
			return created, err
		}
		created = append(created, path)
	}
	return created, nil
}

// LoadProxies resolves proxies from the flag, then LEADCLI_PROXIES, then
// proxies.txt in the config dir.
func LoadProxies(flagValue string) ([]string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return splitCSV(flagValue), nil
	}
	if env := strings.TrimSpace(os.Getenv("LEADCLI_PROXIES")); env != "" {
		return splitCSV(env), nil
	}

	path, err := ProxiesPath()
	if err != nil {
		return nil, err
	}
	return readProxyFile(path)
}

func readProxyFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var proxies []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			proxies = append(proxies, line)
		}
	}
	return proxies, scanner.Err()
}

func envString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
