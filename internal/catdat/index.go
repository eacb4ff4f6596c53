// Package catdat parses the numbered .cat/.dat archive pairs that X4
// Foundations ships its game files in. A .cat file is a plain-text directory
// table; the paired .dat file holds the payloads back to back in table order.
package catdat

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedIndex is wrapped by all index parse failures.
var ErrMalformedIndex = errors.New("malformed cat index")

// zeroHash is the placeholder hash the game writes for entries it does not
// checksum. Treated the same as an absent hash: verification is skipped.
const zeroHash = "00000000000000000000000000000000"

// Entry is one file record from a .cat table. Offsets are derived from the
// running sum of sizes, so entries can never overlap within one archive.
type Entry struct {
	Path   string // normalized game path (lower case, forward slashes)
	Offset int64  // byte offset into the paired .dat file
	Size   int64
	MTime  int64  // unix timestamp as recorded by the packer
	Hash   string // hex MD5 of the payload, "" when unverified
	Rank   int    // priority rank of the owning layer
}

// Verified reports whether the entry carries a usable checksum.
func (e Entry) Verified() bool {
	return e.Hash != ""
}

// NormalizePath lowercases a game path, flips backslashes, and collapses
// empty segments. Lookups across layers are case-insensitive by contract.
func NormalizePath(p string) string {
	p = strings.ToLower(strings.ReplaceAll(p, `\`, "/"))
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, s := range parts {
		if s != "" && s != "." {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "/")
}

// ParseIndex parses one .cat table into its entries, in table order.
// No payload I/O happens here; only the directory metadata is read.
//
// Each line is "path size mtime md5". Paths may contain spaces, so fields
// are split from the right. A duplicate path within one table violates the
// per-layer uniqueness invariant and fails the whole table.
func ParseIndex(data []byte, rank int) ([]Entry, error) {
	var (
		entries []Entry
		offset  int64
		seen    = make(map[string]struct{})
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}

		rawPath, size, mtime, hash, err := splitLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedIndex, lineNo, err)
		}

		path := NormalizePath(rawPath)
		if path == "" {
			return nil, fmt.Errorf("%w: line %d: empty game path", ErrMalformedIndex, lineNo)
		}
		if _, dup := seen[path]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicate path %q", ErrMalformedIndex, lineNo, path)
		}
		seen[path] = struct{}{}

		entries = append(entries, Entry{
			Path:   path,
			Offset: offset,
			Size:   size,
			MTime:  mtime,
			Hash:   hash,
			Rank:   rank,
		})
		offset += size
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIndex, err)
	}

	return entries, nil
}

// splitLine splits "path size mtime md5" from the right, since the path part
// may itself contain spaces.
func splitLine(line string) (path string, size, mtime int64, hash string, err error) {
	fields := strings.Split(line, " ")
	if len(fields) < 4 {
		return "", 0, 0, "", fmt.Errorf("want 4 fields, got %d", len(fields))
	}

	n := len(fields)
	path = strings.Join(fields[:n-3], " ")

	size, err = strconv.ParseInt(fields[n-3], 10, 64)
	if err != nil || size < 0 {
		return "", 0, 0, "", fmt.Errorf("bad size field %q", fields[n-3])
	}
	mtime, err = strconv.ParseInt(fields[n-2], 10, 64)
	if err != nil {
		return "", 0, 0, "", fmt.Errorf("bad mtime field %q", fields[n-2])
	}

	hash = strings.ToLower(fields[n-1])
	if hash == zeroHash || hash == "" {
		hash = ""
	} else if len(hash) != 32 || !isHex(hash) {
		return "", 0, 0, "", fmt.Errorf("bad hash field %q", fields[n-1])
	}

	return path, size, mtime, hash, nil
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
