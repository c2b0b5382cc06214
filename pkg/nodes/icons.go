package nodes

import (
	"path"
	"path/filepath"
	"strings"
)

// filePrefix marks an icon reference that points at a file shipped
// inside the package rather than a symbolic icon name.
const filePrefix = "file:"

// applyIcon populates the icon fields of d from the raw description.
// A resolved file icon becomes a package-relative URL under the
// icons/<packageID>/ namespace; a symbolic reference is kept verbatim.
// The final record carries either icon or iconUrl, never both.
func applyIcon(d *Description, raw map[string]any, origin Origin) {
	switch icon := raw["icon"].(type) {
	case string:
		if strings.HasPrefix(icon, filePrefix) {
			d.IconURL = iconURL(strings.TrimPrefix(icon, filePrefix), origin)
		} else if icon != "" {
			d.Icon = icon
		}
	case map[string]any:
		light, _ := icon["light"].(string)
		dark, _ := icon["dark"].(string)
		if light != "" {
			d.IconURLLight = resolveIconRef(light, origin)
		}
		if dark != "" {
			d.IconURLDark = resolveIconRef(dark, origin)
		}
		// Dark is the canonical URL when both variants are present.
		switch {
		case d.IconURLDark != "":
			d.IconURL = d.IconURLDark
		case d.IconURLLight != "":
			d.IconURL = d.IconURLLight
		}
	}

	// An explicit iconUrl on the raw description overrides anything
	// derived from the icon field and is taken verbatim.
	if override := rawIconURL(raw["iconUrl"]); override != "" {
		d.IconURL = override
		d.Icon = ""
	}

	if d.IconURL != "" {
		d.Icon = ""
	}
}

func rawIconURL(v any) string {
	switch url := v.(type) {
	case string:
		return url
	case map[string]any:
		if dark, _ := url["dark"].(string); dark != "" {
			return dark
		}
		light, _ := url["light"].(string)
		return light
	}
	return ""
}

func resolveIconRef(ref string, origin Origin) string {
	if strings.HasPrefix(ref, filePrefix) {
		return iconURL(strings.TrimPrefix(ref, filePrefix), origin)
	}
	return ref
}

func iconURL(ref string, origin Origin) string {
	return path.Join("icons", CleanPackageID(origin.PackageName), resolveIconPath(ref, origin))
}

// resolveIconPath maps a file icon reference to a path relative to the
// package root. A leading slash marks a reference that is already
// package-relative. A bare filename or an explicit relative reference
// is resolved against the module's own directory first. Anything else
// passes through unchanged.
func resolveIconPath(ref string, origin Origin) string {
	if strings.HasPrefix(ref, "/") {
		return strings.TrimPrefix(ref, "/")
	}

	bare := !strings.Contains(ref, "/")
	explicit := strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../")
	if !bare && !explicit {
		return ref
	}

	moduleDir := filepath.Dir(origin.ModulePath)
	abs := filepath.Join(moduleDir, filepath.FromSlash(ref))
	rel, err := filepath.Rel(origin.PackageRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		// References escaping the package root are left as written.
		return ref
	}
	return filepath.ToSlash(rel)
}
