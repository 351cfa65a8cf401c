package photo

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/franz/photobooth/internal/util"
)

// MediaPrefix is the read-only scheme and host under which stored paths are
// handed to a presentation layer
const MediaPrefix = "media://local-resource/"

// MediaURL returns the media URL of an absolute path
func MediaURL(path string) string {
	p := strings.ReplaceAll(path, `\`, "/")
	segments := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return MediaPrefix + strings.Join(segments, "/")
}

// ResolveMediaURL maps a media URL back to a filesystem path
func ResolveMediaURL(raw string) (string, error) {
	return resolveMediaURL(raw, runtime.GOOS)
}

func resolveMediaURL(raw, goos string) (string, error) {
	if !strings.HasPrefix(raw, "media:") {
		return "", fmt.Errorf("not a media URL %q: %w", raw, util.ErrInvalidInput)
	}
	rest := strings.TrimLeft(strings.TrimPrefix(raw, "media:"), "/")
	rest = strings.TrimPrefix(rest, "local-resource")
	// Repeated host segments come from double-prefixed URLs
	for strings.HasPrefix(rest, "/local-resource/") {
		rest = strings.TrimPrefix(rest, "/local-resource")
	}

	decoded, err := url.PathUnescape(rest)
	if err != nil {
		return "", fmt.Errorf("bad escape in %q: %w", raw, util.ErrInvalidInput)
	}

	if goos == "windows" {
		trimmed := strings.TrimLeft(decoded, "/")
		if len(trimmed) >= 2 && trimmed[1] == ':' {
			return strings.ReplaceAll(trimmed, "/", `\`), nil
		}
		return strings.ReplaceAll(decoded, "/", `\`), nil
	}
	return filepath.Clean("/" + strings.TrimLeft(decoded, "/")), nil
}
