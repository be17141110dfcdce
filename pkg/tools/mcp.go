package tools

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// MCPServerConfig describes how to launch an external MCP server process.
type MCPServerConfig struct {
	Command string
	Args    []string
}

// MCPLookups holds the environment checks used by terraform MCP discovery.
// All fields default to the real OS functions; tests override them.
type MCPLookups struct {
	LookPath func(file string) (string, error)
	Getenv   func(key string) string
	Stat     func(name string) (os.FileInfo, error)
	Home     func() (string, error)
}

func defaultMCPLookups() MCPLookups {
	return MCPLookups{
		LookPath: exec.LookPath,
		Getenv:   os.Getenv,
		Stat:     os.Stat,
		Home:     os.UserHomeDir,
	}
}

// DiscoverTerraformMCP locates a way to run the terraform MCP server.
//
// Tries in order:
//  1. terraform-mcp-server binary on PATH
//  2. docker binary on PATH plus a reachable daemon socket
//  3. nil (sessions work without it using instruction files)
func DiscoverTerraformMCP(lookups MCPLookups) *MCPServerConfig {
	defaults := defaultMCPLookups()
	if lookups.LookPath == nil {
		lookups.LookPath = defaults.LookPath
	}
	if lookups.Getenv == nil {
		lookups.Getenv = defaults.Getenv
	}
	if lookups.Stat == nil {
		lookups.Stat = defaults.Stat
	}
	if lookups.Home == nil {
		lookups.Home = defaults.Home
	}

	if binary, err := lookups.LookPath("terraform-mcp-server"); err == nil {
		return &MCPServerConfig{Command: binary}
	}

	if _, err := lookups.LookPath("docker"); err == nil && dockerSocketReachable(lookups) {
		return &MCPServerConfig{
			Command: "docker",
			Args:    []string{"run", "-i", "--rm", "hashicorp/terraform-mcp-server:latest"},
		}
	}

	return nil
}

// dockerSocketReachable checks the daemon socket candidates in order:
// $DOCKER_HOST (unix:// only), /var/run/docker.sock, then
// ~/.docker/run/docker.sock. A tcp:// or other remote DOCKER_HOST is not a
// filesystem path and is skipped.
func dockerSocketReachable(lookups MCPLookups) bool {
	candidates := make([]string, 0, 3)
	if host := unixSocketPath(lookups.Getenv("DOCKER_HOST")); host != "" {
		candidates = append(candidates, host)
	}
	candidates = append(candidates, "/var/run/docker.sock")
	if home, err := lookups.Home(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".docker/run/docker.sock"))
	}

	for _, sock := range candidates {
		if _, err := lookups.Stat(sock); err == nil {
			return true
		}
	}
	return false
}

// unixSocketPath extracts a stat-able path from a DOCKER_HOST value.
func unixSocketPath(host string) string {
	if rest, ok := strings.CutPrefix(host, "unix://"); ok {
		return rest
	}
	if strings.Contains(host, "://") {
		return ""
	}
	return host
}
