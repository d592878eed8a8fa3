// Package tagmap holds the legacy-topic to context mapping that gives a legacy
// register its physical meaning, together with the sources it can be loaded from.
//
// A Map is built once at startup and is read-only afterwards, so it can be shared
// by any number of goroutines without locking.
package tagmap

import (
	"fmt"
	"sort"
	"strings"
)

// Entry is the context attached to one legacy topic.
type Entry struct {
	Unit        string `yaml:"unit" json:"unit" firestore:"unit"`
	AssetID     string `yaml:"asset_id" json:"asset_id" firestore:"asset_id"`
	Description string `yaml:"description" json:"description" firestore:"description"`
	// UNSTopic is the Unified Namespace topic the canonical payload is published to.
	UNSTopic string `yaml:"uns_topic" json:"uns_topic" firestore:"uns_topic"`
}

// ConfigError reports a mapping that cannot be used to start the gateway.
type ConfigError struct {
	Source string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("tag mapping from %s is unusable: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Map is an immutable legacy-topic -> Entry lookup.
type Map struct {
	entries map[string]Entry
	topics  []string
}

// New validates entries and freezes them into a Map. Every topic must be a
// literal MQTT topic (no wildcards) and every entry must name a UNS topic.
// source is only used to label errors.
func New(source string, entries map[string]Entry) (*Map, error) {
	if len(entries) == 0 {
		return nil, &ConfigError{Source: source, Reason: "no tag mappings defined"}
	}

	frozen := make(map[string]Entry, len(entries))
	topics := make([]string, 0, len(entries))
	for topic, entry := range entries {
		if strings.TrimSpace(topic) == "" {
			return nil, &ConfigError{Source: source, Reason: "empty legacy topic"}
		}
		if strings.ContainsAny(topic, "+#") {
			return nil, &ConfigError{Source: source, Reason: fmt.Sprintf("legacy topic %q contains an MQTT wildcard", topic)}
		}
		if entry.UNSTopic == "" {
			return nil, &ConfigError{Source: source, Reason: fmt.Sprintf("legacy topic %q has no uns_topic", topic)}
		}
		if strings.ContainsAny(entry.UNSTopic, "+#") {
			return nil, &ConfigError{Source: source, Reason: fmt.Sprintf("uns_topic %q for %q contains an MQTT wildcard", entry.UNSTopic, topic)}
		}
		frozen[topic] = entry
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	return &Map{entries: frozen, topics: topics}, nil
}

// Lookup returns the context for a legacy topic.
func (m *Map) Lookup(topic string) (Entry, bool) {
	e, ok := m.entries[topic]
	return e, ok
}

// Topics returns the legacy topics in sorted order, one per mapping key.
func (m *Map) Topics() []string {
	out := make([]string, len(m.topics))
	copy(out, m.topics)
	return out
}

// Len returns the number of mapped topics.
func (m *Map) Len() int {
	return len(m.entries)
}
