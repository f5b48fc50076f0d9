// Package releasestate persists the two small pieces of cross-invocation
// state a release operation needs: the prerelease tag each package is
// currently on, and the set of packages queued for 0.x -> 1.0.0 graduation.
// Grounded on the teacher's internal/repository.JSONStateRepository
// locking/atomic-write discipline (flock + temp-file-then-rename), but
// generalized from a single JSON-with-checksum session blob to two
// independent plain TOML documents with no checksum envelope, matching
// this spec's flat table / array file formats.
package releasestate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/compozy/changeset/internal/domain"
)

const (
	// PrereleaseFileName is the file holding the prerelease state table.
	PrereleaseFileName = "prerelease.toml"
	// GraduationFileName is the file holding the graduation state array.
	GraduationFileName = "graduation.toml"

	filePermissions = 0o600
	lockTimeout     = 30 * time.Second
	lockRetry       = 100 * time.Millisecond
)

// prereleaseDoc is the on-disk shape of the prerelease state file: a flat
// package-name -> tag table.
type prereleaseDoc struct {
	Packages map[string]string `toml:"packages"`
}

// graduationDoc is the on-disk shape of the graduation state file: a single
// ordered array of package names.
type graduationDoc struct {
	Packages []string `toml:"packages"`
}

// Store reads and writes both state files beside the changeset directory.
// Each Load call holds a shared flock, and each Save call an exclusive
// flock, on a sibling ".lock" file for the duration of that call only; no
// lock spans a load and a later save. When the directory does not exist on
// the OS filesystem, no lock is taken.
type Store struct {
	fs  afero.Fs
	dir string
}

// New returns a Store rooted at dir (conventionally the changeset directory).
func New(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) lockPath(name string) string {
	return filepath.Join(s.dir, name+".lock")
}

// LoadPrerelease reads the prerelease state file. A missing file yields an
// empty state, not an error (invariant 5).
func (s *Store) LoadPrerelease(ctx context.Context) (domain.PrereleaseState, error) {
	lock := flock.New(s.lockPath(PrereleaseFileName))
	locked, err := acquireShared(ctx, lock)
	if err != nil {
		return nil, fmt.Errorf("acquiring prerelease state lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("could not acquire prerelease state lock within %s", lockTimeout)
	}
	defer unlock(lock)

	data, err := afero.ReadFile(s.fs, s.path(PrereleaseFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.PrereleaseState{}, nil
		}
		return nil, fmt.Errorf("reading prerelease state: %w", err)
	}
	var doc prereleaseDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing prerelease state %s: %w", s.path(PrereleaseFileName), err)
	}
	return domain.PrereleaseState(doc.Packages), nil
}

// SavePrerelease writes state, or deletes the file if state is empty
// (invariant 5).
func (s *Store) SavePrerelease(ctx context.Context, state domain.PrereleaseState) error {
	lock := flock.New(s.lockPath(PrereleaseFileName))
	locked, err := acquireExclusive(ctx, lock)
	if err != nil {
		return fmt.Errorf("acquiring prerelease state lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("could not acquire prerelease state lock within %s", lockTimeout)
	}
	defer unlock(lock)

	target := s.path(PrereleaseFileName)
	if state.IsEmpty() {
		return removeIfExists(s.fs, target)
	}
	doc := prereleaseDoc{Packages: map[string]string(state.Clone())}
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling prerelease state: %w", err)
	}
	return writeAtomic(s.fs, target, data)
}

// LoadGraduation reads the graduation state file. A missing file yields an
// empty state, not an error.
func (s *Store) LoadGraduation(ctx context.Context) (domain.GraduationState, error) {
	lock := flock.New(s.lockPath(GraduationFileName))
	locked, err := acquireShared(ctx, lock)
	if err != nil {
		return domain.GraduationState{}, fmt.Errorf("acquiring graduation state lock: %w", err)
	}
	if !locked {
		return domain.GraduationState{}, fmt.Errorf("could not acquire graduation state lock within %s", lockTimeout)
	}
	defer unlock(lock)

	data, err := afero.ReadFile(s.fs, s.path(GraduationFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewGraduationState(nil), nil
		}
		return domain.GraduationState{}, fmt.Errorf("reading graduation state: %w", err)
	}
	var doc graduationDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return domain.GraduationState{}, fmt.Errorf(
			"parsing graduation state %s: %w", s.path(GraduationFileName), err,
		)
	}
	return domain.NewGraduationState(doc.Packages), nil
}

// SaveGraduation writes state, or deletes the file if state is empty.
func (s *Store) SaveGraduation(ctx context.Context, state domain.GraduationState) error {
	lock := flock.New(s.lockPath(GraduationFileName))
	locked, err := acquireExclusive(ctx, lock)
	if err != nil {
		return fmt.Errorf("acquiring graduation state lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("could not acquire graduation state lock within %s", lockTimeout)
	}
	defer unlock(lock)

	target := s.path(GraduationFileName)
	if state.IsEmpty() {
		return removeIfExists(s.fs, target)
	}
	names := state.Names()
	sort.Strings(names) // stable on-disk order independent of queue order
	doc := graduationDoc{Packages: names}
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling graduation state: %w", err)
	}
	return writeAtomic(s.fs, target, data)
}

func removeIfExists(fs afero.Fs, path string) error {
	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

func writeAtomic(fs afero.Fs, target string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	tmp := target + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, filePermissions); err != nil {
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := fs.Rename(tmp, target); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("renaming temp state file into place: %w", err)
	}
	return nil
}

func acquireExclusive(ctx context.Context, lock *flock.Flock) (bool, error) {
	return pollLock(ctx, lock.TryLock)
}

func acquireShared(ctx context.Context, lock *flock.Flock) (bool, error) {
	return pollLock(ctx, lock.TryRLock)
}

func pollLock(ctx context.Context, try func() (bool, error)) (bool, error) {
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	ticker := time.NewTicker(lockRetry)
	defer ticker.Stop()
	for {
		locked, err := try()
		if err != nil {
			if os.IsNotExist(err) {
				// The lock file's directory is absent on the OS filesystem
				// (e.g. a Store over an in-memory afero.Fs): no lock to take.
				return true, nil
			}
			return false, err
		}
		if locked {
			return true, nil
		}
		select {
		case <-lockCtx.Done():
			return false, lockCtx.Err()
		case <-ticker.C:
		}
	}
}

func unlock(lock *flock.Flock) {
	_ = lock.Unlock()
}
