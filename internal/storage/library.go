package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
)

// maxNameAttempts bounds collision probing for a destination filename.
const maxNameAttempts = 10000

// Object describes a stored artifact.
type Object struct {
	Path string // absolute path inside the library
	URL  string // public URL when a base url is configured
}

// Store is the destination finished clips are published to. The pipeline
// upload stage depends on this rather than on Library so tests can swap in
// a recorder.
type Store interface {
	Put(ctx context.Context, localPath, key string) (Object, error)
}

// Library is filesystem-backed clip storage. Artifacts land under the
// library root keyed by relative path, copied atomically so consumers
// never see partial files.
type Library struct {
	root    string
	baseURL string
	logger  *slog.Logger
}

// NewLibrary creates a store rooted at root. baseURL, when set, is
// prepended to stored keys to form public URLs.
func NewLibrary(root, baseURL string, logger *slog.Logger) (*Library, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("library root required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Library{
		root:    root,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		logger:  logging.NewComponentLogger(logger, "storage"),
	}, nil
}

var _ Store = (*Library)(nil)

// Root returns the library root directory.
func (l *Library) Root() string {
	return l.root
}

// Put copies a local file into the library under key, a slash-separated
// relative path. When the target name is taken the file gets a numbered
// sibling instead of overwriting, so re-processed VODs never clobber
// published clips.
func (l *Library) Put(ctx context.Context, localPath, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	localPath = strings.TrimSpace(localPath)
	if localPath == "" {
		return Object{}, errors.New("local path required")
	}
	rel, err := cleanKey(key)
	if err != nil {
		return Object{}, err
	}

	target := filepath.Join(l.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Object{}, fmt.Errorf("create library directory: %w", err)
	}

	target, err = nextAvailablePath(target)
	if err != nil {
		return Object{}, err
	}

	if err := fileutil.CopyFileAtomic(localPath, target); err != nil {
		return Object{}, fmt.Errorf("store %s: %w", rel, err)
	}

	storedRel, err := filepath.Rel(l.root, target)
	if err != nil {
		storedRel = rel
	}
	storedRel = filepath.ToSlash(storedRel)

	obj := Object{Path: target, URL: l.publicURL(storedRel)}
	l.logger.Debug("stored artifact",
		logging.String("key", storedRel),
		logging.String("path", target),
	)
	return obj, nil
}

// publicURL joins the base url with an escaped relative key.
func (l *Library) publicURL(rel string) string {
	if l.baseURL == "" {
		return ""
	}
	segments := strings.Split(rel, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return l.baseURL + "/" + strings.Join(segments, "/")
}

// cleanKey validates a storage key and normalizes it to a relative
// slash path. Keys may not escape the library root.
func cleanKey(key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("storage key required")
	}
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return cleaned, nil
}

// nextAvailablePath returns target if free, otherwise the first numbered
// sibling (name-2.ext, name-3.ext, ...) that does not exist yet.
func nextAvailablePath(target string) (string, error) {
	dir := filepath.Dir(target)
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(filepath.Base(target), ext)

	candidate := target
	for attempt := 2; attempt <= maxNameAttempts+1; attempt++ {
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return candidate, nil
			}
			return "", err
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, attempt, ext))
	}
	return "", fmt.Errorf("exhausted filename slots for %s", target)
}

// Slug converts a title into a filesystem and URL safe name segment.
func Slug(value string) string {
	var slug strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			slug.WriteRune(r)
			lastHyphen = false
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if !lastHyphen {
				slug.WriteRune('-')
				lastHyphen = true
			}
		default:
			// drop other runes
		}
	}
	result := strings.Trim(slug.String(), "-")
	if result == "" {
		result = "clip"
	}
	return result
}
