package site

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/openapi-docs-gen/internal/frontmatter"
)

type fingerprintFunc func(content []byte) string

// pageFingerprint hashes frontmatter and body separately so that a page
// moving content across the delimiter is still detected as a change.
func pageFingerprint(content []byte) string {
	doc := frontmatter.Split(content)
	return mdfp.CalculateFingerprintFromParts(string(doc.Raw), string(doc.Body))
}

func assetFingerprint(content []byte) string {
	return mdfp.CalculateFingerprintFromParts("", string(content))
}

// writeIfChanged writes content to dest unless dest already holds content
// with the same fingerprint. Writes go through a temporary file in the same
// directory followed by a rename.
func writeIfChanged(dest string, content []byte, fingerprint fingerprintFunc) (bool, error) {
	existing, err := os.ReadFile(dest)
	switch {
	case err == nil:
		if len(existing) == len(content) && fingerprint(existing) == fingerprint(content) {
			return false, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return false, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return false, err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return false, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return false, err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return false, err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return false, err
	}
	return true, nil
}
