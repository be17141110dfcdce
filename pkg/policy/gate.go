// Package policy gates tool calls made by agent sessions. Every call passes
// through PreToolUse before execution; denied calls never reach the tool.
package policy

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/computer-reinvention/infera/pkg/logx"
	"github.com/computer-reinvention/infera/pkg/tools"
)

// Decision is the outcome of a policy check.
type Decision struct {
	Allow  bool
	Reason string
}

func allow() Decision {
	return Decision{Allow: true}
}

func deny(reason string) Decision {
	return Decision{Allow: false, Reason: reason}
}

// Patterns that mark a shell command as destructive regardless of where it
// points. Matched against the whole command string.
var destructivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+(-[a-zA-Z]*\s+)*-?[a-zA-Z]*[rf][a-zA-Z]*\s+/(\s|$)`),
	regexp.MustCompile(`\brm\s+-rf?\s+/[a-z]`),
	regexp.MustCompile(`\bdd\s+.*\bof=/dev/`),
	regexp.MustCompile(`\bmkfs(\.[a-z0-9]+)?\b`),
	regexp.MustCompile(`\b(shutdown|reboot|halt|poweroff)\b`),
	regexp.MustCompile(`:\(\)\s*\{\s*:\|:&\s*\}`),
	regexp.MustCompile(`\b(curl|wget)\b[^|]*\|\s*(sudo\s+)?(ba)?sh\b`),
}

// Shell commands allowed to reference absolute paths. Terraform and the
// provider CLIs legitimately read global config and state.
var absolutePathExempt = map[string]struct{}{
	"terraform": {},
	"gcloud":    {},
	"aws":       {},
	"az":        {},
	"which":     {},
	"command":   {},
}

// Gate checks tool calls against the project's policy and logs every
// decision through the audit callback.
type Gate struct {
	projectRoot string
	logger      *logx.Logger
}

// NewGate creates a gate for the given project root.
func NewGate(projectRoot string) *Gate {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	return &Gate{
		projectRoot: abs,
		logger:      logx.NewLogger("policy"),
	}
}

// PreToolUse decides whether a tool call may proceed.
func (g *Gate) PreToolUse(tool string, args map[string]any) Decision {
	var d Decision
	switch tool {
	case tools.ToolReadFile, tools.ToolListFiles, tools.ToolVerifyAuth:
		d = allow()
	case tools.ToolWriteFile:
		d = g.checkWritePath(args)
	case tools.ToolShell:
		d = g.checkShellCommand(args)
	default:
		d = deny(fmt.Sprintf("tool %q is not covered by policy", tool))
	}

	if !d.Allow {
		g.logger.Warn("denied %s: %s", tool, d.Reason)
	} else {
		g.logger.Debug("allowed %s", tool)
	}
	return d
}

// PostToolUse records the outcome of an executed tool call. It never blocks.
func (g *Gate) PostToolUse(tool string, duration time.Duration, isError bool) {
	if isError {
		g.logger.Debug("%s completed with error in %s", tool, duration)
		return
	}
	g.logger.Debug("%s completed in %s", tool, duration)
}

// checkWritePath rejects writes that would land outside the project root.
func (g *Gate) checkWritePath(args map[string]any) Decision {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return deny("write_file requires a path")
	}

	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) {
		if !strings.HasPrefix(clean, g.projectRoot+string(filepath.Separator)) && clean != g.projectRoot {
			return deny(fmt.Sprintf("write outside project root: %s", path))
		}
		return allow()
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return deny(fmt.Sprintf("write escapes project root: %s", path))
	}
	return allow()
}

// checkShellCommand rejects destructive commands and commands that touch
// paths outside the project tree.
func (g *Gate) checkShellCommand(args map[string]any) Decision {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return deny("shell requires a command")
	}

	for _, pat := range destructivePatterns {
		if pat.MatchString(command) {
			return deny(fmt.Sprintf("destructive command blocked: %s", command))
		}
	}

	if strings.Contains(command, "sudo ") {
		return deny("privilege escalation is not permitted")
	}

	if d := g.checkCommandPaths(command); !d.Allow {
		return d
	}
	return allow()
}

// checkCommandPaths scans command tokens for path escapes. Absolute paths
// are permitted only for commands on the exempt list, and relative ".."
// segments are always rejected.
func (g *Gate) checkCommandPaths(command string) Decision {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return deny("empty command")
	}

	_, exempt := absolutePathExempt[fields[0]]
	for _, tok := range fields[1:] {
		tok = strings.Trim(tok, `"'`)
		if strings.HasPrefix(tok, "-") {
			continue
		}
		if tok == ".." || strings.HasPrefix(tok, "../") || strings.Contains(tok, "/../") {
			return deny(fmt.Sprintf("path escapes project root: %s", tok))
		}
		if !exempt && strings.HasPrefix(tok, "/") && !strings.HasPrefix(tok, g.projectRoot) {
			return deny(fmt.Sprintf("absolute path outside project root: %s", tok))
		}
	}
	return allow()
}
