// Package nodes defines the normalized node description model and the
// rules for turning a raw in-engine description into a portable record.
package nodes

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

var (
	// ErrMissingName indicates a raw description without a usable node name.
	ErrMissingName = errors.New("node description has no name")
)

// NamespacePrefix is the prefix every normalized node name carries.
const NamespacePrefix = "n8n-nodes"

// Description is the normalized metadata record for one node.
type Description struct {
	DisplayName        string           `json:"displayName"`
	Name               string           `json:"name"`
	Group              []string         `json:"group,omitempty"`
	Version            any              `json:"version,omitempty"`
	Description        string           `json:"description"`
	Defaults           map[string]any   `json:"defaults,omitempty"`
	Inputs             []string         `json:"inputs"`
	Outputs            []string         `json:"outputs"`
	Properties         []map[string]any `json:"properties"`
	Credentials        []map[string]any `json:"credentials,omitempty"`
	Webhooks           []map[string]any `json:"webhooks,omitempty"`
	Icon               string           `json:"icon,omitempty"`
	IconURL            string           `json:"iconUrl,omitempty"`
	IconURLDark        string           `json:"iconUrlDark,omitempty"`
	IconURLLight       string           `json:"iconUrlLight,omitempty"`
	LoadOptionsMethods []string         `json:"__loadOptionsMethods,omitempty"`
}

// Origin identifies where a module was loaded from within its package.
type Origin struct {
	// PackageName is the package name as resolved, including any scope.
	PackageName string
	// PackageRoot is the staged package root directory on disk.
	PackageRoot string
	// ModulePath is the absolute path of the loaded module file.
	ModulePath string
}

// CleanPackageID strips the npm scope and the conventional community
// prefix from a package name, leaving the bare package identifier.
func CleanPackageID(packageName string) string {
	id := packageName
	if strings.HasPrefix(id, "@") {
		if slash := strings.Index(id, "/"); slash >= 0 {
			id = id[slash+1:]
		}
	}
	return strings.TrimPrefix(id, NamespacePrefix+"-")
}

// QualifiedName derives the normalized node name from the package name
// and the node's original name. The result is deterministic for a given
// pair of inputs.
func QualifiedName(packageName, original string) string {
	return fmt.Sprintf("%s-%s.%s", NamespacePrefix, CleanPackageID(packageName), original)
}

// Normalize converts a raw description, as exported from the plugin
// engine, into a Description. The original name is rewritten into the
// qualified namespaced form, icon references are resolved per the rules
// in icons.go, and the captured load-options method names are attached
// in sorted order.
func Normalize(raw map[string]any, origin Origin, loadOptions []string) (*Description, error) {
	name, _ := raw["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingName, origin.ModulePath)
	}

	d := &Description{
		DisplayName: stringField(raw, "displayName"),
		Name:        QualifiedName(origin.PackageName, name),
		Group:       stringSlice(raw["group"]),
		Version:     sanitizeValue(raw["version"]),
		Description: stringField(raw, "description"),
		Defaults:    mapField(raw["defaults"]),
		Inputs:      stringSliceDefault(raw["inputs"], []string{"main"}),
		Outputs:     stringSliceDefault(raw["outputs"], []string{"main"}),
		Properties:  mapSlice(raw["properties"]),
		Credentials: mapSlice(raw["credentials"]),
		Webhooks:    mapSlice(raw["webhooks"]),
	}

	if len(loadOptions) > 0 {
		methods := make([]string, len(loadOptions))
		copy(methods, loadOptions)
		sort.Strings(methods)
		d.LoadOptionsMethods = methods
	}

	applyIcon(d, raw, origin)

	return d, nil
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func stringSlice(v any) []string {
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func stringSliceDefault(v any, fallback []string) []string {
	if out := stringSlice(v); len(out) > 0 {
		return out
	}
	out := make([]string, len(fallback))
	copy(out, fallback)
	return out
}

func mapField(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out, _ := sanitizeValue(m).(map[string]any)
	return out
}

func mapSlice(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return []map[string]any{}
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			if clean, ok := sanitizeValue(m).(map[string]any); ok {
				out = append(out, clean)
			}
		}
	}
	return out
}

// sanitizeValue strips values that cannot be serialized to JSON, such
// as function references exported from the engine. Containers are
// rebuilt recursively.
func sanitizeValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			if isFunc(val) {
				continue
			}
			out[key] = sanitizeValue(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, val := range typed {
			if isFunc(val) {
				continue
			}
			out = append(out, sanitizeValue(val))
		}
		return out
	default:
		if isFunc(v) {
			return nil
		}
		return v
	}
}

func isFunc(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Func
}
