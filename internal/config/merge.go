package config

// Merge merges two Info values, with override taking precedence over base
// for any field it sets. Scalars are replaced when non-zero; the map
// fields (keybinds, mcp, experimental, agent, provider) are merged by key
// name rather than replaced wholesale, so a project file that only touches
// one agent's model doesn't drop the others an earlier layer declared.
func Merge(base, override Info) Info {
	result := base

	if override.Theme != "" {
		result.Theme = override.Theme
	}
	if override.Username != "" {
		result.Username = override.Username
	}
	if override.Share != "" {
		result.Share = override.Share
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	if override.SmallModel != "" {
		result.SmallModel = override.SmallModel
	}
	if override.AutoShare {
		result.AutoShare = true
	}
	if override.AutoUpdate != nil {
		result.AutoUpdate = override.AutoUpdate
	}

	result.Keybinds = mergeStrings(result.Keybinds, override.Keybinds)
	result.MCP = mergeMCP(result.MCP, override.MCP)
	result.Experimental = mergeBools(result.Experimental, override.Experimental)
	result.Agent = mergeAgents(result.Agent, override.Agent)
	result.Provider = mergeProviders(result.Provider, override.Provider)

	return result
}

func mergeStrings(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

func mergeBools(base, override map[string]bool) map[string]bool {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]bool, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

func mergeMCP(base, override map[string]MCPServer) map[string]MCPServer {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]MCPServer, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

func mergeAgents(base, override map[string]AgentConfig) map[string]AgentConfig {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]AgentConfig, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

func mergeProviders(base, override map[string]ProviderConfig) map[string]ProviderConfig {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]ProviderConfig, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
