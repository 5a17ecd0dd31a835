package cookies

import (
	"log/slog"
	"strings"
	"sync"
)

type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Jar is a non-expiring name -> value store of session cookies.
// Cookie attributes (path, expires, domain, ...) are never enforced.
type Jar struct {
	mu     sync.Mutex
	names  []string
	values map[string]string
	store  Store
}

// NewJar creates a jar holding the given initial cookies. When store is
// not nil, the jar writes its full contents back to it after every change.
func NewJar(initial []Cookie, store Store) *Jar {
	j := &Jar{
		values: map[string]string{},
		store:  store,
	}
	for _, c := range initial {
		j.set(c.Name, c.Value)
	}
	return j
}

// set reports whether the jar changed, the caller must hold mu.
func (j *Jar) set(name, value string) bool {
	existing, ok := j.values[name]
	if ok && existing == value {
		return false
	}
	if !ok {
		j.names = append(j.names, name)
	}
	j.values[name] = value
	return true
}

// parseSetCookie splits a (possibly comma folded) Set-Cookie header into
// its cookies. Only the leading name=value pair of each entry is kept.
func parseSetCookie(header string) []Cookie {
	var out []Cookie
	for _, entry := range strings.Split(header, ", ") {
		pair := strings.SplitN(entry, "; ", 2)[0]
		name, value, found := strings.Cut(pair, "=")
		// the tail of a folded "Expires=Wed, 21 Oct ..." attribute
		if !found {
			continue
		}
		name = strings.Trim(name, " ")
		if name == "" {
			continue
		}
		out = append(out, Cookie{Name: name, Value: value})
	}
	return out
}

// ParseHeader reads a request Cookie header, "n1=v1; n2=v2", the format
// Serialize produces and browsers show in their developer tools.
func ParseHeader(header string) []Cookie {
	var out []Cookie
	for _, pair := range strings.Split(header, ";") {
		name, value, found := strings.Cut(strings.Trim(pair, " \t\n"), "=")
		if !found || name == "" {
			continue
		}
		out = append(out, Cookie{Name: name, Value: value})
	}
	return out
}

// Ingest merges a Set-Cookie header value into the jar, overwriting any
// cookie of the same name. It reports whether the jar changed.
func (j *Jar) Ingest(header string) bool {
	parsed := parseSetCookie(header)

	j.mu.Lock()
	defer j.mu.Unlock()

	changed := false
	for _, c := range parsed {
		if j.set(c.Name, c.Value) {
			changed = true
		}
	}
	if changed {
		j.persist()
	}
	return changed
}

func (j *Jar) Set(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.set(name, value) {
		j.persist()
	}
}

func (j *Jar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	value, ok := j.values[name]
	return value, ok
}

// Replace swaps the whole jar contents, used after an external login.
func (j *Jar) Replace(cookies []Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.names = nil
	j.values = map[string]string{}
	for _, c := range cookies {
		j.set(c.Name, c.Value)
	}
	j.persist()
}

// Cookies returns a copy of the jar in insertion order.
func (j *Jar) Cookies() []Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshot()
}

func (j *Jar) snapshot() []Cookie {
	out := make([]Cookie, len(j.names))
	for i, name := range j.names {
		out[i] = Cookie{Name: name, Value: j.values[name]}
	}
	return out
}

func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.names)
}

// Serialize renders the request cookie header, "a=1; b=2".
func (j *Jar) Serialize() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out strings.Builder
	for i, name := range j.names {
		if i > 0 {
			out.WriteString("; ")
		}
		out.WriteString(name)
		out.WriteByte('=')
		out.WriteString(j.values[name])
	}
	return out.String()
}

func (j *Jar) persist() {
	if j.store == nil {
		return
	}
	err := j.store.Save(j.snapshot())
	if err != nil {
		slog.Warn("failed to persist cookies", "err", err)
	}
}
