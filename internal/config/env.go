package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvFiles lists the .env locations checked at startup, nearest first
func EnvFiles() []string {
	paths := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".medreminder", ".env"),
			filepath.Join(home, ".config", "medreminder", ".env"),
		)
	}
	return paths
}

// LoadEnvFiles exports KEY=VALUE pairs from the given files, or from
// EnvFiles when none are given. Variables already set win, so the
// nearest file and the real environment take precedence.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = EnvFiles()
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := loadEnvFile(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := parseEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// parseEnvLine accepts `KEY=VALUE`, `export KEY=VALUE`, quoted values and
// trailing `# comments` on unquoted values.
func parseEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return "", "", false
	}

	switch {
	case len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"':
		value = value[1 : len(value)-1]
	case len(value) >= 2 && value[0] == '\'' && value[len(value)-1] == '\'':
		value = value[1 : len(value)-1]
	default:
		if i := strings.Index(value, " #"); i >= 0 {
			value = strings.TrimSpace(value[:i])
		}
	}
	return key, value, true
}

// envAliases are well known names accepted in place of the MEDREMINDER_ keys
var envAliases = map[string][]string{
	"MEDREMINDER_LEAFLET_API_KEY":             {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"MEDREMINDER_CHANNELS_TELEGRAM_BOT_TOKEN": {"TELEGRAM_BOT_TOKEN"},
	"MEDREMINDER_CHANNELS_DISCORD_TOKEN":      {"DISCORD_BOT_TOKEN", "DISCORD_TOKEN"},
	"MEDREMINDER_SECURITY_JWT_SECRET":         {"MEDREMINDER_JWT_SECRET"},
	"MEDREMINDER_SECURITY_ADMIN_PASSWORD":     {"MEDREMINDER_PASSWORD"},
}

// ResolveEnvWithAliases returns the canonical variable, else the first
// alias that is set.
func ResolveEnvWithAliases(canonicalKey string) string {
	if val := os.Getenv(canonicalKey); val != "" {
		return val
	}
	for _, alias := range envAliases[canonicalKey] {
		if val := os.Getenv(alias); val != "" {
			return val
		}
	}
	return ""
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
