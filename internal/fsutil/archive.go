package fsutil

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	zipMagic   = []byte("PK\x03\x04")
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// ErrUnknownFormat is returned by Extract when an archive is neither a zip
// nor a (compressed) tar.
var ErrUnknownFormat = errors.New("unknown archive format")

// Extract expands the archive at src into dst, choosing zip or tar by
// looking at the leading bytes rather than the file name.
func Extract(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	head := make([]byte, 6)
	n, _ := io.ReadFull(f, head)
	f.Close()
	head = head[:n]
	if n == 0 {
		return fmt.Errorf("extract %s: %w", filepath.Base(src), ErrUnknownFormat)
	}

	if bytes.HasPrefix(head, zipMagic) {
		return Unzip(src, dst)
	}
	if bytes.HasPrefix(head, xzMagic) {
		return fmt.Errorf("extract %s: xz compression is not supported", filepath.Base(src))
	}
	return Untar(src, dst)
}

// Unzip extracts a zip archive into dst. Any existing dst is removed first
// so a rerun never mixes files from two extractions.
func Unzip(src, dst string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	if err := resetDir(dst); err != nil {
		return err
	}

	for _, file := range r.File {
		target, err := safeJoin(dst, file.Name)
		if err != nil {
			return err
		}

		mode := file.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case mode&os.ModeSymlink != 0:
			linkname, err := readZipEntry(file)
			if err != nil {
				return err
			}
			if err := writeSymlink(dst, target, string(linkname)); err != nil {
				return err
			}

		default:
			rc, err := file.Open()
			if err != nil {
				return fmt.Errorf("open zip entry %s: %w", file.Name, err)
			}
			err = writeFile(target, rc, zipPerm(mode))
			rc.Close()
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// Untar extracts a tar archive into dst. Plain, gzip and bzip2 streams are
// recognised by their magic bytes. Any existing dst is removed first.
func Untar(src, dst string) error {
	archiveFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	stream, err := decompress(bufio.NewReader(archiveFile))
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := resetDir(dst); err != nil {
		return err
	}

	tarReader := tar.NewReader(stream)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := safeJoin(dst, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := writeFile(target, tarReader, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}

		case tar.TypeSymlink:
			if err := writeSymlink(dst, target, header.Linkname); err != nil {
				return err
			}

		case tar.TypeLink:
			source, err := safeJoin(dst, header.Linkname)
			if err != nil {
				return err
			}
			if err := CopyFile(source, target); err != nil {
				return fmt.Errorf("create hard link %s: %w", target, err)
			}

		default:
			// Skip other types (char devices, block devices, etc.)
			continue
		}
	}

	return nil
}

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

func decompress(r *bufio.Reader) (io.ReadCloser, error) {
	head, _ := r.Peek(6)
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return gz, nil
	case bytes.HasPrefix(head, bzip2Magic):
		return nopCloser{bzip2.NewReader(r)}, nil
	case bytes.HasPrefix(head, xzMagic):
		return nil, fmt.Errorf("xz compression is not supported")
	default:
		return nopCloser{r}, nil
	}
}

func resetDir(dir string) error {
	if err := RemoveAll(dir); err != nil {
		return err
	}
	return EnsureDir(dir)
}

// safeJoin joins name onto root and rejects entries escaping root.
func safeJoin(root, name string) (string, error) {
	root = filepath.Clean(root)
	target := filepath.Join(root, name)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal file path: %s", name)
	}
	return target, nil
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}
	if perm == 0 {
		perm = 0644
	}

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}

	if _, err := io.Copy(outFile, r); err != nil {
		outFile.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}

	if err := outFile.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return os.Chmod(target, perm)
}

// writeSymlink recreates an archived link. Links resolving outside root
// are rejected just like file entries.
func writeSymlink(root, target, linkname string) error {
	resolved := linkname
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(target), linkname)
	}
	if _, err := safeJoin(root, mustRel(root, resolved)); err != nil || filepath.IsAbs(linkname) {
		return fmt.Errorf("illegal link target: %s -> %s", target, linkname)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}
	return Symlink(linkname, target)
}

func mustRel(root, path string) string {
	rel, err := filepath.Rel(filepath.Clean(root), path)
	if err != nil {
		return ".." + string(os.PathSeparator) + path
	}
	return rel
}

func readZipEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", file.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read zip entry %s: %w", file.Name, err)
	}
	return data, nil
}

// zipPerm keeps the executable bits recorded by unix zip tools; archives
// built on Windows carry no mode and get 0644.
func zipPerm(mode os.FileMode) os.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return 0644
	}
	return perm | 0600
}
