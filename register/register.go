// Package register implements the "register" subcommand, which writes the
// gamedex server entry into an MCP client configuration so the client can
// spawn the binary over stdio.
package register

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// serverEntry is the JSON shape MCP clients expect under "mcpServers".
type serverEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Run executes the register subcommand and exits the process on failure.
// serverName is the entry key (e.g. "gamedex"); args is os.Args[2:]
// (everything after "register").
func Run(serverName string, args []string) {
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	scope := args[0]
	if scope != "project" && scope != "user" {
		fmt.Fprintf(os.Stderr, "Error: unknown scope %q (must be \"project\" or \"user\")\n", scope)
		printUsage()
		os.Exit(1)
	}

	dir, serverArgs := splitArgs(scope, args[1:])

	binary, err := executablePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error locating binary: %v\n", err)
		os.Exit(1)
	}

	configPath, err := configFileFor(scope, dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving config path: %v\n", err)
		os.Exit(1)
	}

	if err := upsertEntry(configPath, serverName, commandFor(binary, serverArgs)); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Registered %q in %s\n", serverName, configPath)
}

func printUsage() {
	binaryName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  %s register project [directory]          # → <directory>/.mcp.json (default: .)\n", binaryName)
	fmt.Fprintf(os.Stderr, "  %s register user                         # → ~/.claude.json\n", binaryName)
	fmt.Fprintf(os.Stderr, "  %s register project . -- -root /roms     # forward args to server\n", binaryName)
	fmt.Fprintf(os.Stderr, "  %s register user -- -root /roms          # forward args to server\n", binaryName)
}

// DeriveServerName turns a binary path into an entry key: base name with
// .exe and -mcp suffixes stripped, so "gamedex-mcp.exe" registers as
// "gamedex".
func DeriveServerName(binaryPath string) string {
	name := filepath.Base(binaryPath)
	name = strings.TrimSuffix(name, ".exe")
	return strings.TrimSuffix(name, "-mcp")
}

// splitArgs separates the optional project directory from args forwarded to
// the server after "--". User scope takes no directory; project scope reads
// it from the first argument before the separator.
func splitArgs(scope string, args []string) (dir string, serverArgs []string) {
	if scope == "project" {
		dir = "."
	}
	for i, arg := range args {
		if arg == "--" {
			return dir, args[i+1:]
		}
		if i == 0 && scope == "project" {
			dir = arg
		}
	}
	return dir, nil
}

func executablePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("getting executable path: %w", err)
	}
	// Clients store the path verbatim, so resolve symlinks now rather
	// than depending on the link still existing later.
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %s: %w", exe, err)
	}
	return resolved, nil
}

// configFileFor picks the client config file: <dir>/.mcp.json for project
// scope, ~/.claude.json for user scope.
func configFileFor(scope string, dir string) (string, error) {
	if scope == "project" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("resolving directory %s: %w", dir, err)
		}
		return filepath.Join(abs, ".mcp.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".claude.json"), nil
}

// commandFor builds the spawn entry. Windows clients cannot exec a bare
// binary path reliably, so the entry goes through cmd /C there.
func commandFor(binary string, serverArgs []string) serverEntry {
	if runtime.GOOS == "windows" {
		return serverEntry{
			Command: "cmd",
			Args:    append([]string{"/C", binary}, serverArgs...),
		}
	}
	return serverEntry{Command: binary, Args: serverArgs}
}

// upsertEntry adds or replaces one server entry in the client config,
// preserving everything else in the file. The write is atomic so a crash
// cannot leave a half-written config behind.
func upsertEntry(configPath, serverName string, entry serverEntry) error {
	doc := map[string]interface{}{}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing existing config %s: %w", configPath, err)
		}
	}

	servers, ok := doc["mcpServers"].(map[string]interface{})
	if !ok {
		if _, present := doc["mcpServers"]; present {
			return fmt.Errorf("mcpServers in %s is not an object", configPath)
		}
		servers = map[string]interface{}{}
		doc["mcpServers"] = servers
	}
	servers[serverName] = entry

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return replaceFile(configPath, append(out, '\n'))
}

// replaceFile writes data to path through a temp file in the same directory
// followed by a rename.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".mcp-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
