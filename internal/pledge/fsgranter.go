package pledge

import (
	"path/filepath"
)

// subRead and subWrite are the two scoped fs subpermissions; any other
// Sub is an error, matching the original fs_granter's "unknown fs
// subpermission" rejection.
const (
	subRead  = "read"
	subWrite = "write"
)

// FSGranter is the canonical granter example: it backs the "fs"
// permission used by every filesystem-touching standard library
// function. Grounded on lfslib.c's fs_granter: a bare grant (no sub)
// is a blanket grant; "read"/"write" scope the grant to a glob pattern
// (or "" for unrestricted); CHECK walks every stored glob against the
// requested path with symlink-aware canonicalization, so a grant on a
// real path cannot be bypassed via a symlinked alias of it.
func FSGranter(req *Request) {
	switch req.Mode {
	case ModeGrant, ModeUpdate:
		fsGrantOrUpdate(req)
	case ModeCheck:
		fsCheck(req)
	}
}

func fsGrantOrUpdate(req *Request) {
	switch req.Sub {
	case "":
		req.Confirm("", "")
	case subRead, subWrite:
		req.Confirm(req.Sub, req.Value)
	default:
		req.Errorf("unknown fs subpermission: " + req.Sub)
	}
}

func fsCheck(req *Request) {
	if req.Value == "" {
		// No path to check against: a bare grant existing is enough,
		// and Store.HasPledge already resolved that before calling us.
		req.Confirm("", "")
		return
	}
	if req.HasBase && req.Count == 0 {
		req.Confirm("", "")
		return
	}
	for {
		pattern, ok := req.Next()
		if !ok {
			break
		}
		if fsGlobMatchPath(pattern, req.Value) {
			req.Confirm(req.Sub, req.Value)
			return
		}
	}
}

// fsGlobMatchPath matches path against a glob pattern, resolving
// symlinks on both sides first so a grant on a real path can't be
// sidestepped through a symlinked alias.
func fsGlobMatchPath(pattern, path string) bool {
	resolvedPattern := pattern
	if dir := filepath.Dir(pattern); dir != "." {
		if rd, err := filepath.EvalSymlinks(dir); err == nil {
			resolvedPattern = filepath.Join(rd, filepath.Base(pattern))
		}
	}
	resolvedPath := path
	if rp, err := filepath.EvalSymlinks(path); err == nil {
		resolvedPath = rp
	} else if rd, err := filepath.EvalSymlinks(filepath.Dir(path)); err == nil {
		// The file itself may not exist yet; canonicalize its directory.
		resolvedPath = filepath.Join(rd, filepath.Base(path))
	}

	if ok, _ := filepath.Match(resolvedPattern, resolvedPath); ok {
		return true
	}
	// Fall back to matching the unresolved forms, so a grant on a path
	// that does not exist yet (e.g. a file to be created) still works.
	ok, _ := filepath.Match(pattern, path)
	return ok
}
