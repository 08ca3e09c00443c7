package plugins

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// ExecArchiver shells out to the zip(1) binary, streaming its output to the caller
type ExecArchiver struct {
	Binary string
	Stdout io.Writer
	Stderr io.Writer
}

func (a *ExecArchiver) Name() string {
	return "exec"
}

// Archive runs zip synchronously inside srcDir. The child is bound to ctx and
// always waited on; a non-zero exit is reported as ErrPackagingFailed.
func (a *ExecArchiver) Archive(ctx context.Context, srcDir, dest string, exclude []string) error {
	bin := a.Binary
	if bin == "" {
		bin = "zip"
	}
	binPath, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrPackagingFailed, bin)
	}

	args := []string{"-r", dest, "."}
	if len(exclude) > 0 {
		args = append(args, "-x")
		args = append(args, zipExcludeArgs(exclude)...)
	}

	cmd := exec.CommandContext(ctx, binPath, args...)
	cmd.Dir = srcDir
	cmd.Stdout = a.Stdout
	cmd.Stderr = a.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with status %d", ErrPackagingFailed, bin, exitErr.ExitCode())
		}
		return fmt.Errorf("%w: %v", ErrPackagingFailed, err)
	}
	return nil
}

// zipExcludeArgs expands segment patterns into zip -x wildcards covering the
// entry itself, anything beneath it, and both at any depth.
func zipExcludeArgs(exclude []string) []string {
	args := make([]string, 0, len(exclude)*4)
	for _, p := range exclude {
		args = append(args, p, "*/"+p, p+"/*", "*/"+p+"/*")
	}
	return args
}

// zipEpoch is stamped on every entry so identical trees produce identical archives
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// NativeArchiver builds the archive in-process with archive/zip.
// Entries are written in lexical order with fixed timestamps. As with zip,
// symlinked files are stored by content and an archive with nothing in it is
// an error. Symlinked directories are stored as directories but not descended.
type NativeArchiver struct{}

func (a *NativeArchiver) Name() string {
	return "native"
}

func (a *NativeArchiver) Archive(ctx context.Context, srcDir, dest string, exclude []string) (err error) {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPackagingFailed, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%w: %v", ErrPackagingFailed, cerr)
		}
	}()

	zw := zip.NewWriter(out)
	written := 0
	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if IsExcluded(rel, exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		// Like zip, store what a symlink to a file points at
		if d.Type()&fs.ModeSymlink != 0 {
			if info, err = os.Stat(path); err != nil {
				return err
			}
		}
		if !info.IsDir() && !info.Mode().IsRegular() {
			return nil
		}
		written++
		return addZipEntry(zw, path, rel, info)
	})
	if walkErr == nil && written == 0 {
		walkErr = errors.New("nothing to archive")
	}
	if walkErr != nil {
		zw.Close()
		return fmt.Errorf("%w: %v", ErrPackagingFailed, walkErr)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrPackagingFailed, err)
	}
	return nil
}

func addZipEntry(zw *zip.Writer, path, rel string, info fs.FileInfo) error {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Modified = zipEpoch

	if info.IsDir() {
		hdr.Name = rel + "/"
		_, err := zw.CreateHeader(hdr)
		return err
	}

	hdr.Name = rel
	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
