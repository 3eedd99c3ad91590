package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/contentsearch/configs"
	"github.com/Aman-CERP/contentsearch/internal/config"
	"github.com/Aman-CERP/contentsearch/internal/output"
)

// mcpServerName is the key of this server in .mcp.json.
const mcpServerName = "contentsearch"

// MCPServerConfig is one server entry of .mcp.json.
type MCPServerConfig struct {
	Type    string            `json:"type,omitempty"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// MCPConfig is the root .mcp.json structure.
type MCPConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

func newInitCmd() *cobra.Command {
	var (
		force   bool
		withMCP bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize contentsearch for a project",
		Long: `Initialize contentsearch in the project directory.

This command:
1. Writes the .contentsearch.yaml configuration template
2. Adds the data directory to .gitignore
3. With --mcp, registers 'contentsearch serve' in .mcp.json

An existing configuration is kept unless --force is given, in which case it
is backed up before being replaced.`,
		Example: `  # Initialize in the current directory
  contentsearch init

  # Replace the configuration (a backup is kept)
  contentsearch init --force

  # Also register the MCP server for the project
  contentsearch init --mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force, withMCP)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration (keeps a backup)")
	cmd.Flags().BoolVar(&withMCP, "mcp", false, "Register the MCP server in .mcp.json")

	return cmd
}

func runInit(cmd *cobra.Command, force, withMCP bool) error {
	out := output.New(cmd.OutOrStdout())
	root, err := resolveProject()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	if err := writeProjectConfig(out, root, force); err != nil {
		return err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(cfg.Index.DataDir) {
		added, err := ensureGitignore(root, cfg.Index.DataDir)
		if err != nil {
			out.Warningf("Could not update .gitignore: %v", err)
		} else if added {
			out.Statusf("📝", "Added %s/ to .gitignore", cfg.Index.DataDir)
		}
	}

	if withMCP {
		if err := configureMCPJSON(out, root, force); err != nil {
			return err
		}
	}

	out.Newline()
	out.Success("Initialized. Next: contentsearch index --sample")
	return nil
}

// writeProjectConfig writes the configuration template. An existing file is
// kept, or backed up and replaced with force.
func writeProjectConfig(out *output.Writer, root string, force bool) error {
	if existing := config.ProjectConfigPath(root); existing != "" {
		if !force {
			out.Statusf("ℹ️ ", "Existing %s preserved", filepath.Base(existing))
			return nil
		}
		backup, err := config.Backup(existing)
		if err != nil {
			return err
		}
		out.Statusf("💾", "Backed up %s to %s", filepath.Base(existing), filepath.Base(backup))
		if existing != filepath.Join(root, config.ProjectConfigFile) {
			if err := os.Remove(existing); err != nil {
				return fmt.Errorf("failed to remove %s: %w", existing, err)
			}
		}
	}

	path := filepath.Join(root, config.ProjectConfigFile)
	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.ProjectConfigFile, err)
	}
	out.Statusf("📝", "Created %s", config.ProjectConfigFile)
	return nil
}

// hasIgnoreEntry reports whether gitignore content already ignores dir.
func hasIgnoreEntry(content, dir string) bool {
	dir = strings.Trim(filepath.ToSlash(dir), "/")
	patterns := map[string]bool{dir: true, dir + "/": true, "/" + dir: true, "/" + dir + "/": true}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if patterns[line] {
			return true
		}
	}
	return false
}

// ensureGitignore appends dir to .gitignore unless already present.
// It reports whether the file was changed.
func ensureGitignore(root, dir string) (bool, error) {
	path := filepath.Join(root, ".gitignore")
	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("reading .gitignore: %w", err)
	}
	if hasIgnoreEntry(string(content), dir) {
		return false, nil
	}

	eol := "\n"
	if bytes.Contains(content, []byte("\r\n")) {
		eol = "\r\n"
	}
	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		content = append(content, eol...)
	}
	if len(content) > 0 {
		content = append(content, eol...)
	}
	content = append(content, fmt.Sprintf("# contentsearch data (auto-generated)%s%s/%s",
		eol, strings.Trim(filepath.ToSlash(dir), "/"), eol)...)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, fmt.Errorf("writing .gitignore: %w", err)
	}
	return true, nil
}

// configureMCPJSON adds the server to .mcp.json in root, preserving other
// entries.
func configureMCPJSON(out *output.Writer, root string, force bool) error {
	path := filepath.Join(root, ".mcp.json")

	cfg := MCPConfig{MCPServers: map[string]MCPServerConfig{}}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("failed to parse existing .mcp.json: %w", err)
		}
		if cfg.MCPServers == nil {
			cfg.MCPServers = map[string]MCPServerConfig{}
		}
		if _, exists := cfg.MCPServers[mcpServerName]; exists && !force {
			out.Status("ℹ️ ", "contentsearch already configured in .mcp.json")
			return nil
		}
	}

	cfg.MCPServers[mcpServerName] = MCPServerConfig{
		Type:    "stdio",
		Command: findBinary(),
		Args:    []string{"serve"},
		Cwd:     root,
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal .mcp.json: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write .mcp.json: %w", err)
	}
	out.Statusf("📝", "Registered MCP server in %s", path)
	return nil
}

// findBinary returns the path of the contentsearch binary: the installed
// one on PATH, else the running executable.
func findBinary() string {
	if path, err := exec.LookPath("contentsearch"); err == nil {
		return path
	}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			return resolved
		}
		return exe
	}
	return "contentsearch"
}
