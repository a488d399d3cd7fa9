// AngelaMos | 2026
// file.go

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/license"
)

// File persists the single license of a local holder as a JSON document.
// The slot holds at most one record: creating a different code replaces it,
// and Get for any other code reports not found. A missing, unreadable or
// corrupt file reads as an empty slot.
type File struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	logger *slog.Logger
	now    func() time.Time
}

func NewFile(fs afero.Fs, path string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	return &File{
		fs:     fs,
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Get(_ context.Context, code string) (*license.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l := f.read()
	if l == nil || l.Code != code {
		return nil, fmt.Errorf("get license: %w", core.ErrNotFound)
	}
	return l, nil
}

func (f *File) Create(_ context.Context, l *license.License) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cur := f.read(); cur != nil && cur.Code == l.Code {
		return fmt.Errorf("create license: %w", core.ErrDuplicateKey)
	}
	return f.write(l)
}

func (f *File) Put(_ context.Context, l *license.License) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.write(l)
}

func (f *File) Delete(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cur := f.read()
	if cur == nil || cur.Code != code {
		return fmt.Errorf("delete license: %w", core.ErrNotFound)
	}

	if err := f.fs.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete license: %w", err)
	}
	return nil
}

func (f *File) List(_ context.Context) ([]license.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l := f.read()
	if l == nil {
		return []license.License{}, nil
	}
	return []license.License{*l}, nil
}

func (f *File) AddUsage(
	_ context.Context,
	code string,
	delta int,
) (*license.License, error) {
	l, _, err := f.update(code, func(l *license.License) bool {
		l.QuestionsUsed = clampUsage(l.QuestionsUsed + delta)
		l.UpdatedAt = f.now().UTC()
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("add usage: %w", err)
	}
	return l, nil
}

func (f *File) MarkActivated(
	_ context.Context,
	code string,
	at time.Time,
) (*license.License, bool, error) {
	l, stamped, err := f.update(code, func(l *license.License) bool {
		return l.StampActivation(at)
	})
	if err != nil {
		return nil, false, fmt.Errorf("mark activated: %w", err)
	}
	return l, stamped, nil
}

func (f *File) SetStatus(
	_ context.Context,
	code string,
	status license.RecordStatus,
) (*license.License, bool, error) {
	l, changed, err := f.update(code, func(l *license.License) bool {
		return l.ChangeStatus(status, f.now())
	})
	if err != nil {
		return nil, false, fmt.Errorf("set status: %w", err)
	}
	return l, changed, nil
}

// update applies fn to the slot under the lock and writes the record back
// when fn reports a change.
func (f *File) update(
	code string,
	fn func(l *license.License) bool,
) (*license.License, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l := f.read()
	if l == nil || l.Code != code {
		return nil, false, core.ErrNotFound
	}

	if !fn(l) {
		return l, false, nil
	}
	if err := f.write(l); err != nil {
		return nil, false, err
	}
	return l, true, nil
}

func (f *File) read() *license.License {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("license file unreadable", "path", f.path, "error", err)
		}
		return nil
	}

	var l license.License
	if err := json.Unmarshal(data, &l); err != nil || l.Code == "" {
		f.logger.Warn("license file corrupt", "path", f.path, "error", err)
		return nil
	}
	return &l
}

// write replaces the slot through a temp file and rename so a crash never
// leaves a half-written record.
func (f *File) write(l *license.License) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encode license: %w", err)
	}

	if err := f.fs.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create license dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write license: %w", err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace license: %w", err)
	}
	return nil
}
