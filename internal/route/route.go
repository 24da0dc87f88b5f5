// Package route maps application URLs to pages and builds links back to them.
package route

import (
	"net/url"
	"strings"

	"github.com/smacontrol/sma/internal/model"
)

// Kind identifies one of the application's pages.
type Kind int

const (
	KindHome Kind = iota
	KindSettings
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindHome:
		return "home"
	case KindSettings:
		return "settings"
	default:
		return "not-found"
	}
}

// BaseURL returns the application root for u: scheme, host and basePath.
// The query is kept so auth residue can be stripped from it later.
func BaseURL(u *url.URL, basePath string) *url.URL {
	b := *u
	b.Path = cleanBase(basePath)
	b.RawPath = ""
	b.Fragment = ""
	b.RawFragment = ""
	return &b
}

// Segments returns the non-empty path segments of u below base's path.
// The second result is false when u is not under base at all.
func Segments(base, u *url.URL) ([]string, bool) {
	prefix := cleanBase(base.Path)
	p := u.Path
	if p == "" {
		p = "/"
	}
	if p+"/" == prefix {
		p = prefix
	}
	if !strings.HasPrefix(p, prefix) {
		return nil, false
	}

	var segs []string
	for _, s := range strings.Split(strings.TrimPrefix(p, prefix), "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs, true
}

// Match selects the page for u. It never fails: every shape it does not
// recognize is KindNotFound.
func Match(base, u *url.URL) Kind {
	segs, ok := Segments(base, u)
	if !ok {
		return KindNotFound
	}
	switch {
	case len(segs) == 0:
		return KindHome
	case len(segs) == 1 && segs[0] == model.SettingsSegment:
		return KindSettings
	default:
		return KindNotFound
	}
}

// Links builds absolute links relative to the application root.
type Links struct {
	Base *url.URL
}

// Home links to the application root.
func (l Links) Home() *url.URL {
	return l.withPath(cleanBase(l.Base.Path))
}

// Settings links to the settings page.
func (l Links) Settings() *url.URL {
	return l.withPath(cleanBase(l.Base.Path) + model.SettingsSegment)
}

func (l Links) withPath(p string) *url.URL {
	u := *l.Base
	u.Path = p
	u.RawPath = ""
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return &u
}

// cleanBase normalizes a base path to start and end with a slash.
func cleanBase(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}
