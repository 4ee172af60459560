package storage

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Supported root schemes.
const (
	SchemeFile = "file"
	SchemeOCI  = "oci"
	SchemeS3   = "s3"
)

// Root is a parsed target root URI such as oci://bucket/volume.
type Root struct {
	Scheme string
	Bucket string // object stores only
	Prefix string // key prefix inside the bucket, no leading or trailing slash
	Dir    string // file scheme only
}

// ParseRoot validates a root URI.
func ParseRoot(uri string) (Root, error) {
	if strings.TrimSpace(uri) == "" {
		return Root{}, fmt.Errorf("%w: empty", ErrMalformedRoot)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return Root{}, fmt.Errorf("%w: %v", ErrMalformedRoot, err)
	}
	if u.Scheme == "" {
		return Root{}, fmt.Errorf("%w: %q has no scheme", ErrMalformedRoot, uri)
	}

	switch u.Scheme {
	case SchemeFile:
		dir := u.Path
		if u.Host != "" {
			// file://relative/dir
			dir = path.Join(u.Host, u.Path)
		}
		if dir == "" {
			return Root{}, fmt.Errorf("%w: %q has no directory", ErrMalformedRoot, uri)
		}
		return Root{Scheme: u.Scheme, Dir: dir}, nil
	case SchemeOCI, SchemeS3:
		if u.Host == "" {
			return Root{}, fmt.Errorf("%w: %q has no bucket", ErrMalformedRoot, uri)
		}
		return Root{
			Scheme: u.Scheme,
			Bucket: u.Host,
			Prefix: strings.Trim(u.Path, "/"),
		}, nil
	default:
		return Root{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// Key returns the object key of name inside the root.
func (r Root) Key(name string) string {
	if r.Prefix == "" {
		return name
	}
	return r.Prefix + "/" + name
}

// Join combines a root URI with a relative name.
func Join(root, name string) string {
	return strings.TrimRight(root, "/") + "/" + strings.TrimLeft(name, "/")
}
