package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSpecifier indicates a package specifier that could not be parsed.
var ErrInvalidSpecifier = errors.New("invalid package specifier")

// Specifier is a parsed npm package reference of the form
// [@scope/]name[@version]. Omitted parts are empty strings.
type Specifier struct {
	Name    string
	Scope   string
	Version string
}

// ParseSpecifier parses a raw package reference. The scope marker and
// the version separator are both "@", so a leading "@" always starts a
// scope and any later "@" starts a version.
func ParseSpecifier(raw string) (Specifier, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Specifier{}, fmt.Errorf("%w: empty specifier", ErrInvalidSpecifier)
	}

	var scope string
	rest := s
	if strings.HasPrefix(rest, "@") {
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return Specifier{}, fmt.Errorf("%w: scoped specifier %q has no package name", ErrInvalidSpecifier, raw)
		}
		scope = rest[1:slash]
		rest = rest[slash+1:]
		if scope == "" {
			return Specifier{}, fmt.Errorf("%w: empty scope in %q", ErrInvalidSpecifier, raw)
		}
	}

	name := rest
	version := ""
	if at := strings.Index(rest, "@"); at >= 0 {
		name = rest[:at]
		version = rest[at+1:]
		if version == "" {
			return Specifier{}, fmt.Errorf("%w: empty version in %q", ErrInvalidSpecifier, raw)
		}
	}
	if name == "" {
		return Specifier{}, fmt.Errorf("%w: empty package name in %q", ErrInvalidSpecifier, raw)
	}

	return Specifier{Name: name, Scope: scope, Version: version}, nil
}

// FullName returns the registry-facing package name, including the
// scope when present.
func (s Specifier) FullName() string {
	if s.Scope != "" {
		return "@" + s.Scope + "/" + s.Name
	}
	return s.Name
}

// String renders the specifier back into its canonical textual form.
func (s Specifier) String() string {
	if s.Version != "" {
		return s.FullName() + "@" + s.Version
	}
	return s.FullName()
}
