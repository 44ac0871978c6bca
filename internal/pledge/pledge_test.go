package pledge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newFSStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	if err := s.RegisterGranter("fs", FSGranter); err != nil {
		t.Fatalf("RegisterGranter: %v", err)
	}
	return s
}

func TestPledgeUnknownPermissionDenied(t *testing.T) {
	s := New()
	ok, err := s.Pledge("network", "")
	if ok || !errors.Is(err, ErrUnknownPermission) {
		t.Fatalf("expected ErrUnknownPermission, got ok=%v err=%v", ok, err)
	}
}

func TestPledgeReservedAllAlwaysDenied(t *testing.T) {
	s := newFSStore(t)
	ok, err := s.Pledge("all", "")
	if ok || !errors.Is(err, ErrReservedName) {
		t.Fatalf("expected ErrReservedName, got ok=%v err=%v", ok, err)
	}
}

func TestFSGranterBlanketGrant(t *testing.T) {
	s := newFSStore(t)
	ok, err := s.Pledge("fs", "")
	if !ok || err != nil {
		t.Fatalf("expected blanket grant to succeed, got ok=%v err=%v", ok, err)
	}
	if !s.HasPledge("fs", "/anything") {
		t.Fatalf("expected blanket fs grant to allow any path")
	}
}

func TestFSGranterScopedReadGrant(t *testing.T) {
	s := newFSStore(t)
	dir := t.TempDir()
	ok, err := s.Pledge("fs:read", filepath.Join(dir, "*.txt"))
	if !ok || err != nil {
		t.Fatalf("expected scoped grant to succeed, got ok=%v err=%v", ok, err)
	}
	if !s.HasPledge("fs:read", filepath.Join(dir, "a.txt")) {
		t.Fatalf("expected matching path to be allowed")
	}
	if s.HasPledge("fs:read", filepath.Join(dir, "a.bin")) {
		t.Fatalf("expected non-matching path to be denied")
	}
	if s.HasPledge("fs:write", filepath.Join(dir, "a.txt")) {
		t.Fatalf("expected write permission to remain ungranted")
	}
}

func TestFSGranterUnknownSubpermission(t *testing.T) {
	s := newFSStore(t)
	ok, err := s.Pledge("fs:execute", "")
	if ok || err == nil {
		t.Fatalf("expected unknown subpermission to be denied")
	}
}

func TestSealBlocksFurtherGrantsButNotChecksOrSeal(t *testing.T) {
	s := newFSStore(t)
	if ok, _ := s.Pledge("fs", ""); !ok {
		t.Fatalf("setup grant failed")
	}
	if ok, err := s.Pledge("seal", ""); !ok || err != nil {
		t.Fatalf("expected seal to always succeed, got ok=%v err=%v", ok, err)
	}
	if !s.IsSealed() {
		t.Fatalf("expected store to be sealed")
	}
	if ok, err := s.Pledge("fs:read", "/tmp/x"); ok || !errors.Is(err, ErrSealed) {
		t.Fatalf("expected grant after seal to fail with ErrSealed, got ok=%v err=%v", ok, err)
	}
	if !s.HasPledge("fs", "/tmp/x") {
		t.Fatalf("expected checks to keep working after seal")
	}
	// Sealing again is idempotent and always settable.
	if ok, _ := s.Pledge("seal", ""); !ok {
		t.Fatalf("expected re-sealing to succeed")
	}
}

func TestRejectPrefixNoOpsSilentlyWhenSealed(t *testing.T) {
	s := newFSStore(t)
	s.Pledge("seal", "")
	ok, err := s.Apply("~fs:read")
	if ok || err != nil {
		t.Fatalf("expected reject after seal to silently no-op, got ok=%v err=%v", ok, err)
	}
}

func TestRevokeClearsGrantButKeepsEntry(t *testing.T) {
	s := newFSStore(t)
	s.Pledge("fs", "")
	if !s.Revoke("fs") {
		t.Fatalf("expected revoke to succeed")
	}
	if s.HasPledge("fs", "/tmp") {
		t.Fatalf("expected revoked permission to be denied")
	}
}

func TestRejectThenGrantDenied(t *testing.T) {
	s := newFSStore(t)
	if !s.Reject("fs:write") {
		t.Fatalf("expected reject to succeed")
	}
	ok, err := s.Pledge("fs:write", "")
	if ok || err != nil {
		t.Fatalf("expected grant of rejected permission to fail silently, got ok=%v err=%v", ok, err)
	}
}

func TestCopyIsDeepAndIndependent(t *testing.T) {
	s := newFSStore(t)
	s.Pledge("fs:read", "/tmp/*")

	clone := s.Copy()
	if !clone.HasPledge("fs:read", "/tmp/a") {
		t.Fatalf("expected clone to inherit parent grants")
	}

	clone.Revoke("fs:read")
	if clone.HasPledge("fs:read", "/tmp/a") {
		t.Fatalf("expected clone revoke to not affect clone's own copy incorrectly")
	}
	if !s.HasPledge("fs:read", "/tmp/a") {
		t.Fatalf("expected parent store to be unaffected by clone's revoke")
	}
}

func TestSymlinkedPathCannotBypassGrant(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	if err := os.Mkdir(real, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unsupported on this platform: %v", err)
	}

	s := newFSStore(t)
	s.Pledge("fs:read", filepath.Join(real, "*"))

	if !s.HasPledge("fs:read", filepath.Join(link, "secret.txt")) {
		t.Fatalf("expected access via symlinked alias of a granted real path to be allowed")
	}
}
