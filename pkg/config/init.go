package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// WriteSampleConfig writes a commented sample configuration to path,
// creating parent directories as needed. Refuses to overwrite an existing
// file.
func WriteSampleConfig(path string) error {
	if path == "" {
		path = GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{}
	ApplyDefaults(cfg)

	content, err := generateYAMLWithComments(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// sectionComments maps top-level YAML sections to their header comments.
var sectionComments = map[string]string{
	"logging": "Log output behavior.",
	"server":  "HTTP server settings.",
	"table":   "Metadata table backend. Only the section matching 'type' is used.",
	"objects": "File content backend. Only the section matching 'type' is used.",
}

// generateYAMLWithComments renders the configuration as YAML with a comment
// above each top-level section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var node yaml.Node
	raw, err := yaml.Marshal(configToMap(cfg))
	if err != nil {
		return "", fmt.Errorf("failed to marshal sample config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return "", fmt.Errorf("failed to reparse sample config: %w", err)
	}

	if len(node.Content) == 1 && node.Content[0].Kind == yaml.MappingNode {
		mapping := node.Content[0]
		for i := 0; i+1 < len(mapping.Content); i += 2 {
			key := mapping.Content[i]
			if comment, ok := sectionComments[key.Value]; ok {
				key.HeadComment = comment
			}
		}
	}

	out, err := yaml.Marshal(&node)
	if err != nil {
		return "", fmt.Errorf("failed to render sample config: %w", err)
	}

	header := "# FileDock server configuration.\n# Environment variables with the FILEDOCK_ prefix override these values.\n\n"
	return header + strings.TrimLeft(string(out), "\n"), nil
}

// configToMap lowers Config to plain maps so the YAML output uses the same
// key names mapstructure reads back.
func configToMap(cfg *Config) map[string]any {
	return map[string]any{
		"logging": map[string]any{
			"level":  cfg.Logging.Level,
			"format": cfg.Logging.Format,
		},
		"server": map[string]any{
			"listen_addr":      cfg.Server.ListenAddr,
			"shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
			"seed_admin":       cfg.Server.SeedAdmin,
		},
		"table": map[string]any{
			"type":   cfg.Table.Type,
			"badger": cfg.Table.Badger,
		},
		"objects": map[string]any{
			"type": cfg.Objects.Type,
			"s3": map[string]any{
				"region": "",
				"bucket": "",
			},
		},
	}
}
