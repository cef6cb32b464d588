// Package config implements the project configuration façade of spec §4.5:
// a single JSON-with-comments file, read through a compiled-in defaults →
// global → project deep-merge hierarchy, with updates written back to the
// project file and announced on the bus. The merge itself follows dive's
// config.Merge: copy the base, then overlay the override field by field,
// with maps merged by key name rather than replaced wholesale.
package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/tailscale/hujson"

	"github.com/hazyhaar/goclode/internal/bus"
	"github.com/hazyhaar/goclode/internal/coreerr"
	"github.com/hazyhaar/goclode/internal/instance"
)

const fileName = "opencode.json"

// typo'd sibling names spec §4.5 treats as evidence the project meant to
// have a config file but misnamed it.
var typoCandidates = []string{".opencode.json", "opencodes.json"}

// MCPServer configures one Model Context Protocol server entry.
type MCPServer struct {
	Enabled bool   `json:"enabled"`
	Command string `json:"command,omitempty"`
	URL     string `json:"url,omitempty"`
}

// AgentConfig overrides per-agent behavior (e.g. the "build" or "plan" agent).
type AgentConfig struct {
	Model      string `json:"model,omitempty"`
	Permission string `json:"permission,omitempty" validate:"omitempty,oneof=ask allow deny"`
}

// ProviderConfig is the [EXPANSION] per-provider section SPEC_FULL.md adds
// so providers registered in internal/providers have a config-driven home
// for credentials, base URL overrides, and routing preference.
type ProviderConfig struct {
	APIKeyEnv    string `json:"api_key_env,omitempty"`
	BaseURL      string `json:"base_url,omitempty"`
	DefaultModel string `json:"default_model,omitempty"`
	Priority     int    `json:"priority,omitempty"`
	RateLimitRPM int    `json:"rate_limit_rpm,omitempty"`
}

// Info is the merged, typed view of a project's configuration.
type Info struct {
	Theme        string                 `json:"theme,omitempty"`
	Username     string                 `json:"username,omitempty"`
	Share        string                 `json:"share,omitempty" validate:"omitempty,oneof=manual auto disabled"`
	Model        string                 `json:"model,omitempty"`
	SmallModel   string                 `json:"small_model,omitempty"`
	Keybinds     map[string]string         `json:"keybinds,omitempty"`
	MCP          map[string]MCPServer      `json:"mcp,omitempty"`
	Experimental map[string]bool           `json:"experimental,omitempty"`
	Agent        map[string]AgentConfig    `json:"agent,omitempty"`
	Provider     map[string]ProviderConfig `json:"provider,omitempty"`
	AutoShare    bool                      `json:"autoshare,omitempty"`
	AutoUpdate   *bool                     `json:"autoupdate,omitempty"`
}

// Updated is the payload of the "config.updated" event (spec §6).
type Updated struct {
	Config Info `json:"config" validate:"required"`
}

// Event is the declared "config.updated" topic.
var Event = bus.Declare[Updated]("config.updated")

func defaults() Info {
	autoUpdate := true
	return Info{
		Theme:      "system",
		Share:      "manual",
		AutoUpdate: &autoUpdate,
		Keybinds:   map[string]string{},
	}
}

func globalPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", coreerr.IO("os.UserConfigDir", err)
	}
	return filepath.Join(dir, "opencode", "config.json"), nil
}

func projectPath(directory string) string {
	return filepath.Join(directory, fileName)
}

// readFile reads a JSONC config file, tolerating comments and trailing
// commas via hujson before standard-library JSON decoding. A missing file
// is not an error: callers treat it as an empty document.
func readFile(path string) (Info, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, false, nil
		}
		return Info{}, false, coreerr.IO("read config", err)
	}

	standard, err := hujson.Standardize(raw)
	if err != nil {
		return Info{}, false, coreerr.JSON(err)
	}

	var info Info
	if err := json.Unmarshal(standard, &info); err != nil {
		return Info{}, false, coreerr.JSON(err)
	}
	return info, true, nil
}

// detectTypo reports the first sibling file name that looks like a
// misspelling of fileName, when fileName itself is absent.
func detectTypo(directory string) (string, bool) {
	for _, candidate := range typoCandidates {
		if _, err := os.Stat(filepath.Join(directory, candidate)); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// Get resolves a project's effective configuration by deep-merging compiled
// defaults, the global file, and the project file, in that order, then
// checks the result against Info's validate tags (a KindInvalid error on
// failure).
func Get(ctx context.Context, directory string) (Info, error) {
	merged := defaults()

	globalFile, err := globalPath()
	if err != nil {
		return Info{}, err
	}
	if g, ok, err := readFile(globalFile); err != nil {
		return Info{}, err
	} else if ok {
		merged = Merge(merged, g)
	}

	path := projectPath(directory)
	p, ok, err := readFile(path)
	if err != nil {
		return Info{}, err
	}
	if ok {
		merged = Merge(merged, p)
	} else if name, found := detectTypo(directory); found {
		return Info{}, coreerr.ConfigDirTypo(name)
	}

	if err := validator.New().Struct(merged); err != nil {
		return Info{}, coreerr.Invalid("config failed schema validation", err.Error())
	}
	return merged, nil
}

// Update deep-merges partial into the project's on-disk file, writes the
// result back, publishes Event with the merged Info on b, and disposes the
// Instance bound to ctx so the next access rebuilds from disk instead of
// reusing anything this scope cached.
func Update(ctx context.Context, b *bus.Bus, directory string, partial Info) (Info, error) {
	path := projectPath(directory)

	existing, ok, err := readFile(path)
	if err != nil {
		return Info{}, err
	}
	if !ok {
		if name, found := detectTypo(directory); found {
			return Info{}, coreerr.ConfigDirTypo(name)
		}
	}

	merged := Merge(existing, partial)

	raw, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return Info{}, coreerr.JSON(err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return Info{}, coreerr.IO("write config", err)
	}

	if err := bus.Publish(ctx, b, Event, Updated{Config: merged}); err != nil {
		return Info{}, err
	}

	if err := instance.Dispose(ctx); err != nil {
		return Info{}, err
	}

	return merged, nil
}
