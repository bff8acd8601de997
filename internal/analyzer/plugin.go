package analyzer

import "github.com/JNZader/sonarprep/internal/rules"

// Plugin identifies a server plugin distribution holding analyzer assemblies.
type Plugin struct {
	Key                string `json:"key" yaml:"key"`
	Version            string `json:"version" yaml:"version"`
	StaticResourceName string `json:"static_resource_name" yaml:"static_resource_name"`
}

func (p Plugin) String() string {
	return p.Key + "@" + p.Version + "/" + p.StaticResourceName
}

// Server property suffixes describing a plugin.
const (
	pluginKeySuffix          = "pluginKey"
	pluginVersionSuffix      = "pluginVersion"
	staticResourceNameSuffix = "staticResourceName"
)

// PluginKeyProperty returns "<partialRepoKey>.pluginKey".
func PluginKeyProperty(partialRepoKey string) string {
	return rules.SettingKey(partialRepoKey, pluginKeySuffix)
}

// PluginVersionProperty returns "<partialRepoKey>.pluginVersion".
func PluginVersionProperty(partialRepoKey string) string {
	return rules.SettingKey(partialRepoKey, pluginVersionSuffix)
}

// StaticResourceNameProperty returns "<partialRepoKey>.staticResourceName".
func StaticResourceNameProperty(partialRepoKey string) string {
	return rules.SettingKey(partialRepoKey, staticResourceNameSuffix)
}

// pluginFor reads the three plugin properties of a partial key. All of them
// must be present.
func pluginFor(serverSettings map[string]string, partialRepoKey string) (Plugin, bool) {
	key, ok := serverSettings[PluginKeyProperty(partialRepoKey)]
	if !ok {
		return Plugin{}, false
	}
	version, ok := serverSettings[PluginVersionProperty(partialRepoKey)]
	if !ok {
		return Plugin{}, false
	}
	resource, ok := serverSettings[StaticResourceNameProperty(partialRepoKey)]
	if !ok {
		return Plugin{}, false
	}
	return Plugin{Key: key, Version: version, StaticResourceName: resource}, true
}
