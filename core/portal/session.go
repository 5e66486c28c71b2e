package portal

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	errInvalidCookie = errors.New("cookie is missing a name or domain")

	nowFunc = time.Now // mockable
)

type (
	// Cookie is the persisted property set of one portal cookie.
	Cookie struct {
		Name     string `json:"name"`
		Value    string `json:"value"`
		Domain   string `json:"domain"`
		Path     string `json:"path"`
		Expires  int64  `json:"expires,omitempty"` // unix seconds; 0 = session cookie
		Secure   bool   `json:"secure,omitempty"`
		HTTPOnly bool   `json:"http_only,omitempty"`
	}

	// Snapshot is the serialized authentication state, durable across process
	// restarts and shared with the embedded-browser helper.
	Snapshot struct {
		Cookies []Cookie `json:"cookies"`
		SavedAt int64    `json:"saved_at"`
	}

	// CookieStore is the capability every live cookie jar must offer so that
	// capture/restore never depend on a concrete jar implementation. There
	// are two in practice: the jar backing the HTTP client and the one shared
	// with the embedded-browser helper.
	CookieStore interface {
		ListAll() []Cookie
		Upsert(Cookie) error
	}
)

// Key identifies a cookie across jars; duplicates from different jars
// collapse onto it during capture.
func (c Cookie) Key() string {
	return c.Name + "|" + c.Domain + "|" + c.Path
}

func (c Cookie) valid() bool { return c.Name != "" && c.Domain != "" }

func (c Cookie) expired(now time.Time) bool {
	return c.Expires != 0 && time.Unix(c.Expires, 0).Before(now)
}

// Capture merges every cookie from every live jar into one snapshot,
// keyed by name+domain+path, with a fresh timestamp. Later jars win on
// conflicting keys.
func Capture(stores ...CookieStore) Snapshot {
	merged := make(map[string]Cookie)
	for _, store := range stores {
		for _, ck := range store.ListAll() {
			merged[ck.Key()] = ck
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	snap := Snapshot{
		Cookies: make([]Cookie, 0, len(merged)),
		SavedAt: nowFunc().Unix(),
	}
	for _, k := range keys {
		snap.Cookies = append(snap.Cookies, merged[k])
	}
	return snap
}

// Restore pushes every snapshot cookie back into every live jar. Cookies
// that fail to reconstruct are skipped individually, never aborting the
// restore; skipped is how many insertions were dropped. Per-cookie upserts
// run concurrently but Restore only returns once all of them are done, so
// restoring twice always converges to the same jar state.
func Restore(snap Snapshot, stores ...CookieStore) (skipped int) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, store := range stores {
		for _, ck := range snap.Cookies {
			if !ck.valid() {
				mu.Lock()
				skipped++
				mu.Unlock()
				continue
			}
			wg.Add(1)
			go func(store CookieStore, ck Cookie) {
				defer wg.Done()
				if err := store.Upsert(ck); err != nil {
					mu.Lock()
					skipped++
					mu.Unlock()
				}
			}(store, ck)
		}
	}
	wg.Wait()
	return skipped
}

// Jar is an in-process cookie jar that doubles as the HTTP client's
// http.CookieJar. Unlike net/http/cookiejar it can enumerate its contents,
// which capture needs.
type Jar struct {
	mu      sync.RWMutex
	cookies map[string]Cookie
}

var (
	_ CookieStore    = (*Jar)(nil)
	_ http.CookieJar = (*Jar)(nil)
)

func NewJar() *Jar {
	return &Jar{cookies: make(map[string]Cookie)}
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, ck := range cookies {
		domain := strings.TrimPrefix(ck.Domain, ".")
		if domain == "" {
			domain = u.Hostname()
		}
		path := ck.Path
		if path == "" {
			path = "/"
		}
		var expires int64
		if !ck.Expires.IsZero() {
			expires = ck.Expires.Unix()
		}
		stored := Cookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   domain,
			Path:     path,
			Expires:  expires,
			Secure:   ck.Secure,
			HTTPOnly: ck.HttpOnly,
		}
		j.cookies[stored.Key()] = stored
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()

	now := nowFunc()
	host := u.Hostname()
	cookies := make([]*http.Cookie, 0, len(j.cookies))
	for _, ck := range j.cookies {
		if ck.expired(now) {
			continue
		}
		if !domainMatch(host, ck.Domain) || !pathMatch(u.Path, ck.Path) {
			continue
		}
		if ck.Secure && u.Scheme != "https" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	sort.Slice(cookies, func(i, k int) bool { return cookies[i].Name < cookies[k].Name })
	return cookies
}

func (j *Jar) ListAll() []Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()

	cookies := make([]Cookie, 0, len(j.cookies))
	for _, ck := range j.cookies {
		cookies = append(cookies, ck)
	}
	sort.Slice(cookies, func(i, k int) bool { return cookies[i].Key() < cookies[k].Key() })
	return cookies
}

func (j *Jar) Upsert(ck Cookie) error {
	if !ck.valid() {
		return errInvalidCookie
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies[ck.Key()] = ck
	return nil
}

func domainMatch(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == "" {
		reqPath = "/"
	}
	return strings.HasPrefix(reqPath, cookiePath)
}

// FileJar is the cookie store shared with the embedded-browser helper: a
// snapshot document on disk that either process may rewrite. Upserts are
// read-modify-write under a lock, committed atomically via rename.
type FileJar struct {
	mu   sync.Mutex
	path string
}

var _ CookieStore = (*FileJar)(nil)

func NewFileJar(path string) *FileJar {
	return &FileJar{path: path}
}

func (j *FileJar) Path() string { return j.path }

func (j *FileJar) ListAll() []Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap, err := j.read()
	if err != nil {
		return nil
	}
	return snap.Cookies
}

func (j *FileJar) Upsert(ck Cookie) error {
	if !ck.valid() {
		return errInvalidCookie
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	snap, err := j.read()
	if err != nil && !os.IsNotExist(errors.Cause(err)) {
		return err
	}

	replaced := false
	for i, existing := range snap.Cookies {
		if existing.Key() == ck.Key() {
			snap.Cookies[i] = ck
			replaced = true
			break
		}
	}
	if !replaced {
		snap.Cookies = append(snap.Cookies, ck)
	}
	snap.SavedAt = nowFunc().Unix()
	return j.write(snap)
}

func (j *FileJar) read() (Snapshot, error) {
	var snap Snapshot
	data, err := os.ReadFile(j.path)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrap(err, "decoding cookie file")
	}
	return snap, nil
}

func (j *FileJar) write(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding cookie file")
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".cookies-*")
	if err != nil {
		return errors.Wrap(err, "creating temp cookie file")
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing temp cookie file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp cookie file")
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return errors.Wrap(err, "committing cookie file")
	}
	committed = true
	return nil
}
