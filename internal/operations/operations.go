// Package operations wires discovery, dump, archive, and replay into the
// backup and restore runs the CLI exposes.
package operations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"wpback/internal/audit"
	"wpback/internal/config"
	"wpback/internal/logger"
	"wpback/internal/vault"
	"wpback/internal/wpconfig"
)

// Operator holds the loaded configuration and shared clients for one run.
type Operator struct {
	cfg   config.Config
	vault *vault.Client
	log   logger.Logger
}

// NewOperator loads the YAML config at configPath (defaults only when
// empty) and initializes the Vault client when one is configured.
func NewOperator(ctx context.Context, configPath string) (*Operator, error) {
	var cfg config.Config
	if err := cfg.Load(configPath); err != nil {
		return nil, err
	}

	op := &Operator{cfg: cfg, log: logger.Global()}

	if cfg.Vault.Address != "" {
		client, err := vault.NewClient(ctx,
			vault.WithAddress(cfg.Vault.Address),
			vault.WithAppRole(cfg.Vault.RoleID, cfg.Vault.ApproleName),
		)
		if err != nil {
			return nil, fmt.Errorf("vault client init: %w", err)
		}
		op.vault = client
	}
	return op, nil
}

// findSite resolves the WordPress directory to operate on. An explicit path
// wins; otherwise the configured document roots are probed and the first
// install found is used.
func (op *Operator) findSite(wpPath string) (string, error) {
	if wpPath != "" {
		if _, err := os.Stat(wpPath); err != nil {
			return "", fmt.Errorf("wordpress directory %q: %w", wpPath, err)
		}
		return wpPath, nil
	}

	sites := wpconfig.Locate(op.cfg.Search.Paths, op.cfg.Search.GlobPatterns)
	if len(sites) == 0 {
		return "", fmt.Errorf("no WordPress installation found in configured search paths")
	}
	if len(sites) > 1 {
		op.log.Warn("multiple WordPress installations found, using first",
			"selected", sites[0],
			"found", len(sites),
		)
	}
	return sites[0], nil
}

// resolveCredentials parses wp-config.php under wpPath, then overrides the
// user and password from Vault when a secret path is configured.
func (op *Operator) resolveCredentials(ctx context.Context, wpPath string) (*wpconfig.Credentials, error) {
	creds, err := wpconfig.Parse(filepath.Join(wpPath, "wp-config.php"))
	if err != nil {
		return nil, err
	}

	if op.vault != nil && op.cfg.Vault.SecretPath != "" {
		vc, err := op.vault.GetCredentials(ctx, op.cfg.Vault.SecretPath)
		if err != nil {
			return nil, fmt.Errorf("vault credentials: %w", err)
		}
		creds.User = vc.Username
		creds.Password = vc.Password
		op.log.Info("database credentials overridden from vault",
			"path", op.cfg.Vault.SecretPath,
		)
	}
	return creds, nil
}

// auditCredentials runs the weak-credential checks and prints the report.
func (op *Operator) auditCredentials(creds *wpconfig.Credentials) {
	findings := audit.Run(creds, audit.Lists{
		Names:     op.cfg.Audit.WeakNames,
		Users:     op.cfg.Audit.WeakUsers,
		Passwords: op.cfg.Audit.WeakPasswords,
	})
	audit.Report(os.Stdout, creds, findings)
}
