package native

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"github.com/pkg/errors"
)

// FileURL turns an absolute path into a file:// URL, the address form
// services expect for local artifacts.
func FileURL(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		// windows drive letters: C:/foo -> /C:/foo
		p = "/" + p
	}
	u := &url.URL{Scheme: "file", Path: p}
	return u.String()
}

// ResolveSource turns a source address into something eos can open:
// a local path for file:// URLs, the URL itself for http(s).
func ResolveSource(address string) (string, error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", errors.WithMessage(err, "parsing update source")
	}

	switch u.Scheme {
	case "file":
		p := u.Path
		if runtime.GOOS == "windows" {
			p = strings.TrimPrefix(p, "/")
		}
		if p == "" {
			return "", errors.Errorf("empty path in update source (%s)", address)
		}
		return filepath.FromSlash(p), nil
	case "http", "https":
		return address, nil
	default:
		return "", errors.Errorf("unsupported update source scheme (%s)", u.Scheme)
	}
}

// SourceName returns the last path element of a source address.
func SourceName(address string) string {
	if u, err := url.Parse(address); err == nil && u.Path != "" {
		return filepath.Base(filepath.FromSlash(u.Path))
	}
	return filepath.Base(address)
}

var archiveExts = []string{".tar.gz", ".zip", ".tgz", ".exe", ".msi", ".pkg", ".dmg", ".appimage"}

// VersionFromName extracts a version from artifact names like
// `itch-26.1.0.zip` or `itch-linux-amd64-26.1.0-beta.1.zip`. It returns
// an empty string if there is none.
func VersionFromName(name string) string {
	base := filepath.Base(name)
	lower := strings.ToLower(base)
	for _, ext := range archiveExts {
		if strings.HasSuffix(lower, ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}

	for i := 0; i < len(base); i++ {
		if i > 0 && base[i-1] != '-' && base[i-1] != '_' {
			continue
		}
		candidate := base[i:]
		if !looksLikeVersion(candidate) {
			continue
		}
		if v, err := goversion.NewVersion(candidate); err == nil {
			return v.Original()
		}
	}
	return ""
}

func looksLikeVersion(s string) bool {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// IsZip reports whether an artifact should be extracted rather than copied.
func IsZip(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}
