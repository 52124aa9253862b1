package logging

import (
	"sort"
	"strings"
)

// ChannelFieldName is the record field holding the channel alias.
const ChannelFieldName = "channel"

// RootLoggerName is the display name of the root logger.
const RootLoggerName = "root"

// AliasFor returns the short channel alias of a dotted logger name.
//
// Explicit mapping entries are matched longest first, so a registration for
// "a.b" wins over one for "a". Names outside the mapping fall back to the
// project namespace rule: "<project>.x.y" becomes "x", anything else becomes
// its first segment. The result is never empty.
func AliasFor(name, projectName string, mapping map[string]string) string {
	return aliasFor(name, projectName, mapping, sortedKeys(mapping))
}

// aliasFor implements AliasFor with keys already in match order.
func aliasFor(name, projectName string, mapping map[string]string, keys []string) string {
	if name == "" || name == RootLoggerName {
		return projectName
	}

	for _, key := range keys {
		if name == key || strings.HasPrefix(name, key+".") {
			return mapping[key]
		}
	}

	if name == projectName {
		return projectName
	}
	if rest, ok := strings.CutPrefix(name, projectName+"."); ok {
		seg, _, _ := strings.Cut(rest, ".")
		if seg == "" {
			return projectName
		}
		return seg
	}

	seg, _, _ := strings.Cut(name, ".")
	if seg == "" {
		return name
	}
	return seg
}

// sortedKeys orders mapping keys by descending length, ties lexically.
func sortedKeys(mapping map[string]string) []string {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// ChannelFilter tags records with the channel alias of their logger.
// It never drops a record.
type ChannelFilter struct {
	ProjectName string
	Mapping     map[string]string

	keys []string
}

// NewChannelFilter returns a filter over a private copy of mapping.
func NewChannelFilter(projectName string, mapping map[string]string) *ChannelFilter {
	m := make(map[string]string, len(mapping))
	for k, v := range mapping {
		m[k] = v
	}
	return &ChannelFilter{ProjectName: projectName, Mapping: m, keys: sortedKeys(m)}
}

// Alias is AliasFor bound to the filter's project and mapping.
func (f *ChannelFilter) Alias(name string) string {
	keys := f.keys
	if keys == nil {
		keys = sortedKeys(f.Mapping)
	}
	return aliasFor(name, f.ProjectName, f.Mapping, keys)
}

// Apply stores the alias of the record's logger under ChannelFieldName.
func (f *ChannelFilter) Apply(fields map[string]any) {
	name, _ := fields[LoggerFieldName].(string)
	fields[ChannelFieldName] = f.Alias(name)
}
