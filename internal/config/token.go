package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoToken indicates no Discord token could be resolved.
var ErrNoToken = errors.New("DISCORD_TOKEN not found in environment or .mcp.json")

// Token resolves the Discord bot token: the DISCORD_TOKEN environment
// variable wins; otherwise the .mcp.json in the tracker root is scanned
// for a server config carrying one.
func Token(trackerDir string) (string, error) {
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		return token, nil
	}
	return tokenFromMCPConfig(filepath.Join(trackerDir, ".mcp.json"))
}

// tokenFromMCPConfig extracts DISCORD_TOKEN from an MCP server config file.
func tokenFromMCPConfig(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is derived from trusted config
	if err != nil {
		return "", fmt.Errorf("%w (cannot read %s)", ErrNoToken, path)
	}

	var mcpConfig struct {
		MCPServers map[string]struct {
			Env map[string]string `json:"env"`
		} `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &mcpConfig); err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}

	for _, serverConfig := range mcpConfig.MCPServers {
		if token, ok := serverConfig.Env["DISCORD_TOKEN"]; ok && token != "" {
			return token, nil
		}
	}
	return "", ErrNoToken
}
