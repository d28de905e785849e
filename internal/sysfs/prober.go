// Package sysfs locates kernel-exposed control points under /sys. Every
// function here only reads or stats files, so probing is safe to repeat for
// live status polling.
package sysfs

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/tweakctl/internal/logger"
	"golang.org/x/sys/unix"
)

// Prober looks up control points relative to a root directory, "/" on a real
// system and a scratch tree in tests.
type Prober struct {
	root     string
	writable func(path string) bool
	log      logger.Logger
}

type Option func(*Prober)

// WithWritableCheck replaces the access(2) based writability test.
func WithWritableCheck(fn func(path string) bool) Option {
	return func(p *Prober) {
		p.writable = fn
	}
}

// WithLogger sets the logger used for debug tracing of probe results.
func WithLogger(log logger.Logger) Option {
	return func(p *Prober) {
		p.log = log
	}
}

func NewProber(root string, opts ...Option) *Prober {
	if root == "" {
		root = "/"
	}

	p := &Prober{
		root:     root,
		writable: accessWritable,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Path joins elem onto the prober root.
func (p *Prober) Path(elem ...string) string {
	return filepath.Join(append([]string{p.root}, elem...)...)
}

// Writable reports whether the current user may write path.
func (p *Prober) Writable(path string) bool {
	return p.writable(path)
}

// ReadInt reads a file holding a single integer.
func (p *Prober) ReadInt(path string) (int64, bool) {
	s, ok := p.ReadString(path)
	if !ok {
		return 0, false
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

// ReadString reads a file and trims surrounding whitespace.
func (p *Prober) ReadString(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	return strings.TrimSpace(string(data)), true
}

func accessWritable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// sortedEntries lists the names in dir in lexicographic order. A missing or
// unreadable directory yields nothing.
func sortedEntries(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	return names
}
