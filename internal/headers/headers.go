// Package headers defines the fixed response header profiles and the
// middleware that stamps them onto every response.
package headers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Header is a single response header.
type Header struct {
	Name  string
	Value string
}

func (h Header) String() string {
	return h.Name + ": " + h.Value
}

// Profile is a named, ordered set of headers applied to every response.
type Profile struct {
	Name        string
	Description string
	DefaultPort int
	Headers     []Header
}

// Dev keeps the browser revalidating and allows cross-origin fetches.
var Dev = Profile{
	Name:        "dev",
	Description: "no-cache revalidation and open CORS for local testing",
	DefaultPort: 8000,
	Headers: []Header{
		{"Cache-Control", "no-cache"},
		{"Access-Control-Allow-Origin", "*"},
	},
}

// Hardened disables every cache layer and adds browser security headers.
var Hardened = Profile{
	Name:        "hardened",
	Description: "no caching at all plus security headers",
	DefaultPort: 8080,
	Headers: []Header{
		{"Cache-Control", "no-cache, no-store, must-revalidate"},
		{"Pragma", "no-cache"},
		{"Expires", "0"},
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"X-XSS-Protection", "1; mode=block"},
		{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	},
}

var profiles = []Profile{Dev, Hardened}

// Profiles returns all built-in profiles in display order.
func Profiles() []Profile {
	return append([]Profile(nil), profiles...)
}

// Names returns the built-in profile names.
func Names() []string {
	return lo.Map(profiles, func(p Profile, _ int) string { return p.Name })
}

// Lookup finds a profile by name (case-insensitive).
func Lookup(name string) (Profile, error) {
	p, ok := lo.Find(profiles, func(p Profile) bool {
		return strings.EqualFold(p.Name, strings.TrimSpace(name))
	})
	if !ok {
		return Profile{}, fmt.Errorf("unknown header profile %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// With returns a copy of p with extra headers. An extra header replaces a
// profile header of the same name in place; new names are appended in
// sorted order so the result is deterministic.
func (p Profile) With(extra map[string]string) Profile {
	if len(extra) == 0 {
		return p
	}
	out := p
	out.Headers = append([]Header(nil), p.Headers...)

	canon := lo.MapKeys(extra, func(_ string, name string) string {
		return http.CanonicalHeaderKey(strings.TrimSpace(name))
	})
	names := lo.Keys(canon)
	sort.Strings(names)
	for _, name := range names {
		_, idx, found := lo.FindIndexOf(out.Headers, func(h Header) bool {
			return http.CanonicalHeaderKey(h.Name) == name
		})
		if found {
			out.Headers[idx].Value = canon[name]
			continue
		}
		out.Headers = append(out.Headers, Header{Name: name, Value: canon[name]})
	}
	return out
}

// Apply sets every profile header on h, replacing existing values.
func (p Profile) Apply(h http.Header) {
	for _, hd := range p.Headers {
		h.Set(hd.Name, hd.Value)
	}
}

// Middleware wraps next so that p is applied to every response.
//
// The headers are set at the moment the status line is written rather than
// before calling next: http.FileServer strips caching headers from its error
// responses, and this is the only point after which nobody can touch them.
func Middleware(p Profile, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hw := &headerWriter{ResponseWriter: w, profile: p}
		next.ServeHTTP(hw, r)
		// Handler returned without writing; net/http will send an implicit 200.
		hw.apply()
	})
}

type headerWriter struct {
	http.ResponseWriter
	profile Profile
	applied bool
}

func (w *headerWriter) apply() {
	if w.applied {
		return
	}
	w.applied = true
	w.profile.Apply(w.ResponseWriter.Header())
}

func (w *headerWriter) WriteHeader(code int) {
	if code >= 200 || code == http.StatusSwitchingProtocols {
		w.apply()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *headerWriter) Write(b []byte) (int, error) {
	w.apply()
	return w.ResponseWriter.Write(b)
}

func (w *headerWriter) Flush() {
	w.apply()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *headerWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
