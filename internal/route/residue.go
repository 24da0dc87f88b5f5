package route

import (
	"net/url"
	"strings"

	"github.com/smacontrol/sma/internal/model"
)

// StripAuthResidue removes the code and state parameters a hosted login
// leaves on the redirect URL. Nothing is removed unless both are present;
// other parameters keep their original encoding and order. The returned URL
// is always a copy and the bool reports whether anything was removed.
func StripAuthResidue(u *url.URL) (*url.URL, bool) {
	out := *u
	if u.RawQuery == "" {
		return &out, false
	}

	pairs := strings.Split(u.RawQuery, "&")
	var hasCode, hasState bool
	for _, p := range pairs {
		switch queryKey(p) {
		case model.AuthCodeParam:
			hasCode = true
		case model.AuthStateParam:
			hasState = true
		}
	}
	if !hasCode || !hasState {
		return &out, false
	}

	kept := make([]string, 0, len(pairs))
	for _, p := range pairs {
		k := queryKey(p)
		if k == model.AuthCodeParam || k == model.AuthStateParam {
			continue
		}
		kept = append(kept, p)
	}
	out.RawQuery = strings.Join(kept, "&")
	out.ForceQuery = false
	return &out, true
}

func queryKey(pair string) string {
	k, _, _ := strings.Cut(pair, "=")
	if unescaped, err := url.QueryUnescape(k); err == nil {
		return unescaped
	}
	return k
}
