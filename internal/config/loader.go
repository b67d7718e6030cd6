// Package config loads the optional wpback YAML configuration.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"wpback/internal/wpconfig"
)

// ErrLoadConfig indicates a failure to read or parse the YAML configuration.
var ErrLoadConfig = errors.New("config load failed")

// Config is the top-level configuration. Every field has a usable default;
// a missing config file is not an error.
type Config struct {
	Backup  BackupConfig  `mapstructure:"backup"  yaml:"backup"`
	Restore RestoreConfig `mapstructure:"restore" yaml:"restore"`
	Audit   AuditConfig   `mapstructure:"audit"   yaml:"audit"`
	Vault   VaultConfig   `mapstructure:"vault"   yaml:"vault"`
	Search  SearchConfig  `mapstructure:"search"  yaml:"search"`
}

// BackupConfig holds dump-side options.
type BackupConfig struct {
	Compress bool          `mapstructure:"compress" yaml:"compress"`
	Timeout  time.Duration `mapstructure:"timeout"  yaml:"timeout"`
}

// RestoreConfig holds replay-side options.
type RestoreConfig struct {
	Timeout time.Duration `mapstructure:"timeout"   yaml:"timeout"`
	// WebUsers are the account names tried, in order, when repairing file
	// ownership after a restore.
	WebUsers []string `mapstructure:"web_users" yaml:"web_users"`
}

// AuditConfig carries the known-weak credential values. These are data,
// not code: deployments may extend or replace them.
type AuditConfig struct {
	WeakNames     []string `mapstructure:"weak_names"     yaml:"weak_names"`
	WeakUsers     []string `mapstructure:"weak_users"     yaml:"weak_users"`
	WeakPasswords []string `mapstructure:"weak_passwords" yaml:"weak_passwords"`
}

// VaultConfig optionally overrides wp-config.php credentials with a Vault
// KV secret. Disabled while Address is empty.
type VaultConfig struct {
	Address     string `mapstructure:"address"      yaml:"address,omitempty"`
	RoleID      string `mapstructure:"role_id"      yaml:"role_id,omitempty"`
	ApproleName string `mapstructure:"approle_name" yaml:"approle_name,omitempty"`
	SecretPath  string `mapstructure:"secret_path"  yaml:"secret_path,omitempty"`
}

// SearchConfig controls WordPress installation discovery.
type SearchConfig struct {
	Paths        []string `mapstructure:"paths"         yaml:"paths"`
	GlobPatterns []string `mapstructure:"glob_patterns" yaml:"glob_patterns"`
}

// Load reads the configuration at path, or just the defaults when path is
// empty.
func (c *Config) Load(path string) error {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("%w: read %s: %v", ErrLoadConfig, path, err)
		}
	}

	if err := v.UnmarshalExact(c); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backup.compress", false)
	v.SetDefault("backup.timeout", 30*time.Minute)
	v.SetDefault("restore.timeout", 30*time.Minute)
	v.SetDefault("restore.web_users", []string{"www-data", "apache", "nginx", "nobody"})
	v.SetDefault("audit.weak_names", []string{"wordpress", "wp", "database", "db", "wp_database"})
	v.SetDefault("audit.weak_users", []string{"root", "admin", "wordpress", "wp", "user", "dbuser"})
	v.SetDefault("audit.weak_passwords", []string{
		"", "password", "root", "admin", "wordpress",
		"123456", "12345678", "qwerty", "letmein",
	})
	v.SetDefault("search.paths", wpconfig.DefaultSearchPaths)
	v.SetDefault("search.glob_patterns", wpconfig.DefaultGlobPatterns)
}
