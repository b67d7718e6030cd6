// Package wpconfig extracts database connection parameters from a
// WordPress wp-config.php without executing PHP.
package wpconfig

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ErrParse indicates a wp-config.php that could not be read or that holds
// no usable database settings.
var ErrParse = errors.New("wp-config parse failed")

// Credentials are the resolved connection parameters for one install.
type Credentials struct {
	Name        string
	User        string
	Password    string
	Host        string
	Port        int
	TablePrefix string
}

const defaultPort = 3306

var (
	// define('KEY', 'value')
	rePlainDefine = regexp.MustCompile(`define\s*\(\s*['"]%s['"]\s*,\s*['"]([^'"]*)['"]`)
	// define('KEY', getenv_docker('ENV_NAME', 'default')), the official docker image form
	reDockerDefine = regexp.MustCompile(`define\s*\(\s*['"]%s['"]\s*,\s*getenv_docker\s*\([^,]+,\s*['"]([^'"]*)['"]`)
	// define('KEY', getenv('ENV_NAME'))
	reEnvDefine = regexp.MustCompile(`define\s*\(\s*['"]%s['"]\s*,.*getenv\s*\(\s*['"]([^'"]*)['"]`)

	rePrefix = regexp.MustCompile(`\$table_prefix\s*=\s*['"]([^'"]*)['"]`)
)

// Parse reads and parses the wp-config.php at path.
func Parse(path string) (*Credentials, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return ParseContent(string(content))
}

// ParseContent parses wp-config.php source text. define() calls are
// matched in three forms: a plain literal, the docker image's
// getenv_docker default, and a getenv() lookup resolved against the
// current environment.
func ParseContent(content string) (*Credentials, error) {
	creds := &Credentials{
		Name:        extractDefine(content, "DB_NAME"),
		User:        extractDefine(content, "DB_USER"),
		Password:    extractDefine(content, "DB_PASSWORD"),
		Host:        extractDefine(content, "DB_HOST"),
		Port:        defaultPort,
		TablePrefix: "wp_",
	}

	if m := rePrefix.FindStringSubmatch(content); m != nil {
		creds.TablePrefix = m[1]
	}

	if creds.Host == "" {
		creds.Host = "localhost"
	}
	if host, port, ok := splitHostPort(creds.Host); ok {
		creds.Host = host
		creds.Port = port
	}

	if creds.Name == "" && creds.User == "" {
		return nil, fmt.Errorf("%w: no DB_NAME or DB_USER define found", ErrParse)
	}
	return creds, nil
}

func extractDefine(content, key string) string {
	for _, tmpl := range []*regexp.Regexp{rePlainDefine, reDockerDefine} {
		re := regexp.MustCompile(strings.Replace(tmpl.String(), "%s", regexp.QuoteMeta(key), 1))
		if m := re.FindStringSubmatch(content); m != nil {
			return m[1]
		}
	}
	re := regexp.MustCompile(strings.Replace(reEnvDefine.String(), "%s", regexp.QuoteMeta(key), 1))
	if m := re.FindStringSubmatch(content); m != nil {
		return os.Getenv(m[1])
	}
	return ""
}

// splitHostPort handles the "host:port" form DB_HOST allows.
func splitHostPort(host string) (string, int, bool) {
	i := strings.LastIndexByte(host, ':')
	if i < 0 {
		return host, 0, false
	}
	port, err := strconv.Atoi(host[i+1:])
	if err != nil {
		return host, 0, false
	}
	return host[:i], port, true
}
