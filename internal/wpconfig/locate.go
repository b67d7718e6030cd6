package wpconfig

import (
	"os"
	"path/filepath"
)

// DefaultSearchPaths are the common WordPress document roots probed when
// the caller does not name an install.
var DefaultSearchPaths = []string{
	"/var/www/html",
	"/var/www/wordpress",
	"/var/www/html/wordpress",
	"/var/www",
	"/srv/www/htdocs",
	"/usr/share/nginx/html",
}

// DefaultGlobPatterns cover per-user hosting layouts.
var DefaultGlobPatterns = []string{
	"/home/*/public_html",
	"/home/*/www",
	"/var/www/*/public_html",
}

// Locate returns every directory from paths and globPatterns that holds a
// wp-config.php, in probe order, without duplicates.
func Locate(paths, globPatterns []string) []string {
	var found []string
	seen := map[string]bool{}

	probe := func(dir string) {
		if seen[dir] {
			return
		}
		if info, err := os.Stat(filepath.Join(dir, "wp-config.php")); err == nil && info.Mode().IsRegular() {
			seen[dir] = true
			found = append(found, dir)
		}
	}

	for _, p := range paths {
		probe(p)
	}
	for _, pattern := range globPatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			probe(m)
		}
	}
	return found
}
