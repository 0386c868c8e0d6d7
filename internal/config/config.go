// Package config reads the node's INI configuration file and applies
// environment variable overrides (spec §3, §6, §9).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"sniffdognode/internal/engine"
	"sniffdognode/internal/peerinfo"
)

// ConfigError marks a fatal, unrecoverable startup configuration
// problem (spec §7: ConfigError is fatal, never retried).
type ConfigError struct {
	Section string
	Key     string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: [%s]: %v", e.Section, e.Err)
	}
	return fmt.Sprintf("config: [%s] %s: %v", e.Section, e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// generalSectionKeys are the "[general]" options that may be
// overridden by an upper-cased environment variable of the same name
// (spec §6), ported from original_source's
// NodeConfigurations.read_from_env_variables.
var generalSectionKeys = []string{
	"web_service_http_host",
	"web_service_http_port",
	"searches_database_path",
	"peer_database_path",
	"minimum_search_results_threshold",
	"peer_to_peer_port",
	"peer_sync_frequency",
	"log_level",
}

// Config is the fully parsed, environment-overridden node
// configuration, covering every recognized option in spec §3.
type Config struct {
	SearchesDatabasePath string
	PeerDatabasePath     string

	WebServiceHTTPHost string
	WebServiceHTTPPort int

	PeerToPeerPort int

	PeerSyncFrequency             time.Duration
	MinimumSearchResultsThreshold int

	// FanOut is the configurable peer-fan-out-per-round introduced by
	// the expanded spec (spec §9 Open Question: "treat it as a
	// configurable with default 7"); it has no equivalent key in
	// original_source.
	FanOut int

	// SyncWorkers sizes the rpcserver worker pool; an ambient
	// runtime-tuning knob, not one of spec §3's recognized options.
	SyncWorkers int

	NodeDiscoverable bool
	SelfPeer         peerinfo.Info

	LogLevel string

	KnownPeers []peerinfo.Info
	Engines    []engine.Descriptor
}

// Load reads path as an INI file laid out per spec §6: "[general]",
// "[node]", and one named section per engine listed in
// "[general] engines" and per peer listed in "[general] peers"
// (mirrors original_source's configs.py _parse, which resolves the
// comma-separated "engines"/"peers" lists in "[general]" into
// standalone sections).
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, &ConfigError{Section: "general", Err: fmt.Errorf("read %s: %w", path, err)}
	}

	general := file.Section("general")
	node := file.Section("node")

	cfg := &Config{
		WebServiceHTTPHost:            generalString(general, "web_service_http_host", "127.0.0.1"),
		WebServiceHTTPPort:            generalInt(general, "web_service_http_port", 8080),
		SearchesDatabasePath:          generalString(general, "searches_database_path", "./results.db"),
		PeerDatabasePath:              generalString(general, "peer_database_path", "./peers.db"),
		MinimumSearchResultsThreshold: generalInt(general, "minimum_search_results_threshold", 10),
		PeerToPeerPort:                generalInt(general, "peer_to_peer_port", 3003),
		PeerSyncFrequency:             time.Duration(generalInt(general, "peer_sync_frequency", 300)) * time.Second,
		LogLevel:                      generalString(general, "log_level", "info"),
		FanOut:                        nodeInt(node, "fan_out", 7),
		SyncWorkers:                   nodeInt(node, "sync_workers", 4),
		NodeDiscoverable:              nodeBool(node, "discoverable", true),
		SelfPeer:                      parseSelfPeer(node),
	}

	for _, name := range splitList(general, "engines") {
		section, err := file.GetSection(name)
		if err != nil {
			return nil, &ConfigError{Section: name, Err: fmt.Errorf("engine section %q not found: %w", name, err)}
		}
		cfg.Engines = append(cfg.Engines, parseEngineSection(name, section))
	}

	for _, name := range splitList(general, "peers") {
		section, err := file.GetSection(name)
		if err != nil {
			return nil, &ConfigError{Section: name, Err: fmt.Errorf("peer section %q not found: %w", name, err)}
		}
		cfg.KnownPeers = append(cfg.KnownPeers, parsePeerSection(section))
	}

	return cfg, nil
}

func splitList(section *ini.Section, key string) []string {
	if section == nil {
		return nil
	}
	raw := section.Key(key).String()
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseSelfPeer(node *ini.Section) peerinfo.Info {
	if node == nil {
		return peerinfo.Info{}
	}
	return peerinfo.Info{
		Address:      node.Key("node_address").String(),
		ProxyType:    peerinfo.ParseProxyType(node.Key("proxy_type").String()),
		ProxyAddress: node.Key("proxy_address").String(),
	}
}

func parsePeerSection(section *ini.Section) peerinfo.Info {
	return peerinfo.Info{
		Address:      section.Key("address").String(),
		ProxyType:    peerinfo.ParseProxyType(section.Key("proxy_type").String()),
		ProxyAddress: section.Key("proxy_address").String(),
	}
}

// parseEngineSection reads one named engine section, field names
// ported directly from original_source's sds.sniffingdog.SearchEngine
// constructor arguments.
func parseEngineSection(name string, section *ini.Section) engine.Descriptor {
	return engine.Descriptor{
		Name:             section.Key("name").MustString(name),
		QueryURLTemplate: section.Key("search_query_url").String(),
		ResultSelector:   section.Key("results_container_filter").String(),
		TitleSelector:    section.Key("result_title_filter").String(),
		URLSelector:      section.Key("result_url_filter").String(),
		UserAgent:        section.Key("user_agent").MustString("sniffdognode/1.0"),
	}
}

// generalString reads key from section, applying an environment
// variable override (spec §6: upper-cased key name) and falling back
// to def.
func generalString(section *ini.Section, key, def string) string {
	if v, ok := envOverride(key); ok {
		return v
	}
	if section == nil {
		return def
	}
	return section.Key(key).MustString(def)
}

func generalInt(section *ini.Section, key string, def int) int {
	if v, ok := envOverride(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if section == nil {
		return def
	}
	return section.Key(key).MustInt(def)
}

// envOverride looks up the upper-cased environment variable for key,
// but only for the general-section keys spec §6 actually names;
// [node]/engine/peer sections are not env-overridable in
// original_source.
func envOverride(key string) (string, bool) {
	for _, k := range generalSectionKeys {
		if k == key {
			if v, ok := os.LookupEnv(strings.ToUpper(key)); ok {
				return v, true
			}
			return "", false
		}
	}
	return "", false
}

func nodeBool(section *ini.Section, key string, def bool) bool {
	if section == nil {
		return def
	}
	return section.Key(key).MustBool(def)
}

func nodeInt(section *ini.Section, key string, def int) int {
	if section == nil {
		return def
	}
	return section.Key(key).MustInt(def)
}
