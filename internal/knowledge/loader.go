// Package knowledge serves the workflow and known-error documents that
// ground every analysis prompt.
package knowledge

import (
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/loglens/loglens/internal/logging"
)

const (
	// WorkflowFile and KnownErrorsFile are the document names expected
	// under the docs directory.
	WorkflowFile    = "workflow.md"
	KnownErrorsFile = "known_errors.md"

	// WorkflowPlaceholder and KnownErrorsPlaceholder stand in for a
	// missing document. The analyzer prompt embeds them verbatim.
	WorkflowPlaceholder    = "No workflow documentation available."
	KnownErrorsPlaceholder = "No known error patterns available."

	cacheTTL = 5 * time.Minute
)

// Loader reads the two knowledge documents from disk, caching contents
// with a short TTL so repeated requests do not re-read files.
type Loader struct {
	dir    string
	cache  *expirable.LRU[string, string]
	logger *logging.Logger
}

// NewLoader creates a loader rooted at the given docs directory.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:    dir,
		cache:  expirable.NewLRU[string, string](4, nil, cacheTTL),
		logger: logging.GetLogger("knowledge"),
	}
}

// Dir returns the docs directory this loader reads from.
func (l *Loader) Dir() string {
	return l.dir
}

// Docs returns the workflow and known-error documents. It never fails:
// a missing or unreadable file yields that document's placeholder.
func (l *Loader) Docs() (workflow, knownErrors string) {
	workflow = l.read(WorkflowFile, WorkflowPlaceholder)
	knownErrors = l.read(KnownErrorsFile, KnownErrorsPlaceholder)
	return workflow, knownErrors
}

func (l *Loader) read(name, placeholder string) string {
	if cached, ok := l.cache.Get(name); ok {
		l.logger.Debug("Cache hit for document %s", name)
		return cached
	}

	path := filepath.Join(l.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		// Placeholders are not cached, so a document created later is
		// picked up on the next request even without the watcher.
		l.logger.Warn("Documentation not found at %s", path)
		return placeholder
	}

	content := string(data)
	l.cache.Add(name, content)
	return content
}

// Invalidate drops all cached documents so the next read hits disk.
func (l *Loader) Invalidate() {
	l.cache.Purge()
}
