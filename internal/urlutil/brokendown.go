// Package urlutil implements spec.md §6's external-interface helpers: the
// `hvml+` resource scheme, URL decomposition/assembly with the component
// set purc_broken_down_url names, and per-component Punycode encoding for
// IDN hostnames.
package urlutil

import (
	"net/url"
	"strconv"
	"strings"
)

// BrokenDownURL mirrors purc_broken_down_url: schema, user, passwd, host,
// path, query, fragment, port, with a HasX flag per optional field so an
// empty string can be distinguished from an absent component (spec.md §6
// "Empty strings are distinguished from absent").
type BrokenDownURL struct {
	Schema      string
	HasUser     bool
	User        string
	HasPasswd   bool
	Passwd      string
	HasHost     bool
	Host        string
	HasPath     bool
	Path        string
	HasQuery    bool
	Query       string
	HasFragment bool
	Fragment    string
	HasPort     bool
	Port        uint32
}

// BreakDown parses raw into its components. It reports ok=false for a
// string net/url itself rejects, mirroring pcutils_url_break_down's bool
// return for "bad URL string".
func BreakDown(raw string) (BrokenDownURL, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return BrokenDownURL{}, false
	}

	var b BrokenDownURL
	b.Schema = u.Scheme

	if u.User != nil {
		b.HasUser = true
		b.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			b.HasPasswd = true
			b.Passwd = pw
		}
	}

	if u.Opaque == "" && strings.Contains(raw, "://") {
		b.HasHost = true
		b.Host = u.Hostname()
	}

	if p := u.Port(); p != "" {
		if port, perr := strconv.ParseUint(p, 10, 32); perr == nil {
			b.HasPort = true
			b.Port = uint32(port)
		}
	}

	if u.Path != "" || u.Opaque != "" {
		b.HasPath = true
		if u.Opaque != "" {
			b.Path = u.Opaque
		} else {
			b.Path = u.Path
		}
	}

	if u.ForceQuery || u.RawQuery != "" {
		b.HasQuery = true
		b.Query = u.RawQuery
	}

	if u.Fragment != "" || strings.Contains(raw, "#") {
		b.HasFragment = true
		b.Fragment = u.Fragment
	}

	return b, true
}

// QueryValue fetches a single key out of b.Query, spec.md §6 "Query
// values can be fetched by key". Returns ok=false if the key isn't
// present at all (as opposed to present with an empty value).
func (b BrokenDownURL) QueryValue(key string) (string, bool) {
	if !b.HasQuery {
		return "", false
	}
	values, err := url.ParseQuery(b.Query)
	if err != nil {
		return "", false
	}
	if vs, ok := values[key]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}

// Assemble reassembles b into a URL string, the inverse of BreakDown
// (pcutils_url_assemble). keepPercentEscaped controls whether Path/Query
// are re-escaped by net/url (true) or emitted as already-escaped literals
// (false), mirroring the C function's boolean of the same name.
func Assemble(b BrokenDownURL, keepPercentEscaped bool) string {
	var sb strings.Builder

	if b.Schema != "" {
		sb.WriteString(b.Schema)
		sb.WriteString("://")
	}

	if b.HasUser {
		sb.WriteString(b.User)
		if b.HasPasswd {
			sb.WriteByte(':')
			sb.WriteString(b.Passwd)
		}
		sb.WriteByte('@')
	}

	if b.HasHost {
		sb.WriteString(b.Host)
	}

	if b.HasPort {
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(uint64(b.Port), 10))
	}

	if b.HasPath {
		path := b.Path
		if keepPercentEscaped {
			path = (&url.URL{Path: b.Path}).EscapedPath()
		}
		if path != "" && !strings.HasPrefix(path, "/") && b.HasHost {
			sb.WriteByte('/')
		}
		sb.WriteString(path)
	}

	if b.HasQuery {
		sb.WriteByte('?')
		sb.WriteString(b.Query)
	}

	if b.HasFragment {
		sb.WriteByte('#')
		sb.WriteString(b.Fragment)
	}

	return sb.String()
}
