package submit

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Placeholder replaces secrets in log output.
const Placeholder = "<HIDDEN>"

// Masker replaces secrets, and the encodings a transport may render them in,
// with Placeholder.
type Masker struct {
	secrets []string
}

func NewMasker(secrets ...string) *Masker {
	seen := map[string]bool{}
	var all []string
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		all = append(all, s)
	}

	for _, s := range secrets {
		add(s)
		add(url.QueryEscape(s))
		add(url.PathEscape(s))
		if q := strconv.Quote(s); len(q) > 2 {
			add(q[1 : len(q)-1])
		}
		if u, err := url.Parse(s); err == nil && u.Scheme != "" {
			add(u.String())
			add(u.Redacted())
			// net/http renders request URLs in errors with the password as "***".
			if _, ok := u.User.Password(); ok {
				add(strings.Replace(u.String(), u.User.String()+"@", u.User.Username()+":***@", 1))
			}
		}
	}

	// Longest first so a URL is hidden as a whole before its parts.
	sort.SliceStable(all, func(i, j int) bool { return len(all[i]) > len(all[j]) })
	return &Masker{secrets: all}
}

// Mask returns text with every secret replaced.
func (m *Masker) Mask(text string) string {
	for _, s := range m.secrets {
		text = strings.ReplaceAll(text, s, Placeholder)
	}
	return text
}

// urlSecrets returns raw plus the credentials embedded in it: the password,
// the query string, every key=value pair of it and every long enough value.
func urlSecrets(raw string) []string {
	secrets := []string{raw}
	u, err := url.Parse(raw)
	if err != nil {
		return secrets
	}
	if pw, ok := u.User.Password(); ok {
		secrets = append(secrets, pw)
	}
	if u.RawQuery != "" {
		secrets = append(secrets, u.RawQuery)
	}
	for _, part := range strings.Split(u.RawQuery, "&") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || v == "" {
			continue
		}
		secrets = append(secrets, part)
		// Undecoded values too: "+" and "%xx" survive in rendered URLs.
		if len(v) >= minSecretLen {
			secrets = append(secrets, v)
		}
		if dv, err := url.QueryUnescape(v); err == nil && dv != v {
			secrets = append(secrets, k+"="+url.QueryEscape(dv))
			if len(dv) >= minSecretLen {
				secrets = append(secrets, dv)
			}
		}
	}
	return secrets
}

// Bare query values shorter than this are too ambiguous to mask outside
// their key=value pair.
const minSecretLen = 6
