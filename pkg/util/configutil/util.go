// Package configutil sets Viper defaults of nested config sections.
package configutil

import (
	"sort"
	"strings"
)

// SetDefault abstracts setting Viper defaults.
type SetDefault interface {
	SetDefault(key string, value any)
}

// SetDefaultFunc implements SetDefault.
type SetDefaultFunc func(key string, value any)

// SetDefault calls f if it is not nil.
func (f SetDefaultFunc) SetDefault(key string, value any) {
	if f == nil {
		return
	}
	f(key, value)
}

// Prefix returns a SetDefault that sets every key below section on d.
func Prefix(d SetDefault, section string) SetDefault {
	section = strings.TrimSuffix(section, ".")
	if section == "" {
		return d
	}
	return SetDefaultFunc(func(key string, value any) {
		d.SetDefault(section+"."+key, value)
	})
}

// Defaults maps config keys to their default values.
type Defaults map[string]any

// Apply sets all defaults on d in key order.
func (m Defaults) Apply(d SetDefault) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d.SetDefault(k, m[k])
	}
}
