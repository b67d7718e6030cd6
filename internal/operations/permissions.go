package operations

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
)

// FixPermissions hands a restored tree to the web server account: the
// first configured user that exists on this host gets ownership, with
// 0755 on directories, 0644 on files, and 0600 on wp-config.php since it
// holds the database password. Every failure is logged and swallowed: the
// files are already in place and a permission problem must not fail the
// restore.
func (op *Operator) FixPermissions(dir string) {
	uid, gid := -1, -1
	owner := ""
	for _, name := range op.cfg.Restore.WebUsers {
		u, err := user.Lookup(name)
		if err != nil {
			continue
		}
		uid, _ = strconv.Atoi(u.Uid)
		gid, _ = strconv.Atoi(u.Gid)
		owner = name
		break
	}
	if owner == "" {
		op.log.Warn("no web server account found, leaving ownership as extracted",
			"tried", op.cfg.Restore.WebUsers,
		)
	}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if uid >= 0 {
			if err := os.Chown(path, uid, gid); err != nil {
				return err
			}
		}
		mode := os.FileMode(0o644)
		switch {
		case info.IsDir():
			mode = 0o755
		case filepath.Base(path) == "wp-config.php":
			mode = 0o600
		}
		return os.Chmod(path, mode)
	})
	if err != nil {
		op.log.Warn("permission repair incomplete", "dir", dir, "error", err.Error())
		return
	}
	if owner != "" {
		op.log.Info("permissions repaired", "dir", dir, "owner", owner)
	}
}
