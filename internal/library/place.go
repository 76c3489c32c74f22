package library

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/kozaktomas/photo-triage/internal/constants"
)

// Mode is how a sorted file reaches its destination.
type Mode string

const (
	ModeMove Mode = "move"
	ModeCopy Mode = "copy"
	ModeLink Mode = "link"
)

// ParseMode validates a mode name. Empty means move.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMove:
		return ModeMove, nil
	case ModeCopy, ModeLink:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected move, copy or link)", s)
	}
}

// Placer puts sorted files below Root.
type Placer struct {
	Root string
	Mode Mode
}

// Destination returns where src ends up for person. An empty person means
// no identity matched.
func (p Placer) Destination(src, person string) string {
	dir := constants.UnassignedDir
	if person != "" {
		dir = DirName(person)
	}
	return filepath.Join(p.Root, dir, filepath.Base(src))
}

// Place moves, copies or links src to its destination and returns the
// destination path. An existing destination file is replaced.
func (p Placer) Place(src, person string) (string, error) {
	dst := p.Destination(src, person)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create target directory: %w", err)
	}

	var err error
	switch p.Mode {
	case ModeMove, "":
		err = moveFile(src, dst)
	case ModeCopy:
		err = copyFile(src, dst)
	case ModeLink:
		err = linkFile(src, dst)
	default:
		err = fmt.Errorf("unknown mode %q", p.Mode)
	}
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", p.Mode, src, err)
	}
	return dst, nil
}

func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func linkFile(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return copyFile(src, dst)
		}
	}
	if err := os.Link(src, dst); err != nil {
		return copyFile(src, dst)
	}
	return nil
}

// copyFile copies contents, permission bits and modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
