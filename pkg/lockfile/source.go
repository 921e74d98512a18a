package lockfile

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/matzehuels/cargo-lock-fetch/pkg/errors"
)

// Source describes where a package is fetched from.
//
// The set of implementations is closed: [RegistrySource], [GitSource],
// [PathSource] and [OtherSource].
type Source interface {
	// Kind returns the source kind prefix as written in Cargo.lock
	// (e.g., "registry", "sparse", "git", "path").
	Kind() string
	// String returns the source in Cargo.lock notation.
	String() string

	isSource()
}

// RegistrySource is a package index, either git based or sparse (HTTP).
type RegistrySource struct {
	Endpoint string // index URL without the kind prefix
	Sparse   bool
}

func (s RegistrySource) Kind() string {
	if s.Sparse {
		return "sparse"
	}
	return "registry"
}

func (s RegistrySource) String() string { return s.Kind() + "+" + s.Endpoint }
func (RegistrySource) isSource()        {}

// RefKind distinguishes the git reference forms.
type RefKind int

const (
	// RefBranch names a branch. An empty name means the remote's default branch.
	RefBranch RefKind = iota
	RefTag
	RefRev
)

func (k RefKind) String() string {
	switch k {
	case RefTag:
		return "tag"
	case RefRev:
		return "rev"
	default:
		return "branch"
	}
}

// GitReference is the reference a git dependency was declared with.
type GitReference struct {
	Kind RefKind
	Name string
}

// GitSource is a git repository, optionally pinned to a precise commit.
type GitSource struct {
	Repo    string // repository URL without query and fragment
	Precise string // resolved commit, empty when unknown
	Ref     GitReference
}

func (GitSource) Kind() string { return "git" }

func (s GitSource) String() string {
	var b strings.Builder
	b.WriteString("git+")
	b.WriteString(s.Repo)
	if s.Ref.Name != "" {
		b.WriteString("?" + s.Ref.Kind.String() + "=" + url.QueryEscape(s.Ref.Name))
	}
	if s.Precise != "" {
		b.WriteString("#" + s.Precise)
	}
	return b.String()
}

func (GitSource) isSource() {}

// PathSource is a package on the local filesystem.
type PathSource struct {
	URI string
}

func (PathSource) Kind() string     { return "path" }
func (s PathSource) String() string { return "path+" + s.URI }
func (PathSource) isSource()        {}

// FilePath returns the filesystem path of the source. file:// URIs are
// converted; anything else is returned as written.
func (s PathSource) FilePath() string {
	u, err := url.Parse(s.URI)
	if err != nil || u.Scheme != "file" {
		return s.URI
	}
	return u.Path
}

// OtherSource is a source kind with no known meaning.
type OtherSource struct {
	Raw string
}

func (s OtherSource) Kind() string {
	kind, _, _ := strings.Cut(s.Raw, "+")
	return kind
}

func (s OtherSource) String() string { return s.Raw }
func (OtherSource) isSource()        {}

// UnsupportedSourceError reports a source kind that cannot be handled.
type UnsupportedSourceError struct {
	Kind string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("unsupported source kind %q", e.Kind)
}

// ParseSource parses a Cargo.lock source string.
// Unknown kinds yield an [OtherSource]; only malformed strings are errors.
func ParseSource(raw string) (Source, error) {
	kind, rest, ok := strings.Cut(raw, "+")
	if !ok || kind == "" || rest == "" {
		return nil, errors.New(errors.ErrCodeInvalidLockfile, "malformed source %q", raw)
	}

	switch kind {
	case "registry":
		return RegistrySource{Endpoint: rest}, nil
	case "sparse":
		return RegistrySource{Endpoint: rest, Sparse: true}, nil
	case "git":
		return parseGit(rest)
	case "path":
		return PathSource{URI: rest}, nil
	default:
		return OtherSource{Raw: raw}, nil
	}
}

func parseGit(raw string) (Source, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "malformed git source %q", raw)
	}

	src := GitSource{Precise: u.Fragment}
	q := u.Query()
	switch {
	case q.Has("tag"):
		src.Ref = GitReference{Kind: RefTag, Name: q.Get("tag")}
	case q.Has("rev"):
		src.Ref = GitReference{Kind: RefRev, Name: q.Get("rev")}
	case q.Has("branch"):
		src.Ref = GitReference{Kind: RefBranch, Name: q.Get("branch")}
	case q.Has("ref"):
		src.Ref = GitReference{Kind: RefBranch, Name: q.Get("ref")}
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	src.Repo = u.String()
	return src, nil
}
