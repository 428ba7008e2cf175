package position

import (
	"path/filepath"
	"sync"

	"cseek/internal/buffers"
	"cseek/internal/domain"
)

// Resolver maps candidates to concrete navigation targets and manages the
// lifetime of buffers opened only for preview. One resolver belongs to one
// interaction; it is not shared.
type Resolver struct {
	buffers buffers.Manager
	baseDir string // candidate paths are relative to the index directory

	mu        sync.Mutex
	temporary map[string]bool // buffers this resolver opened for preview
}

// NewResolver creates a resolver. baseDir is the directory candidate file
// paths are relative to, normally the resolved database directory.
func NewResolver(mgr buffers.Manager, baseDir string) *Resolver {
	return &Resolver{
		buffers:   mgr,
		baseDir:   baseDir,
		temporary: make(map[string]bool),
	}
}

// Path returns the absolute file path for a candidate
func (r *Resolver) Path(c domain.Candidate) string {
	if filepath.IsAbs(c.File) {
		return filepath.Clean(c.File)
	}
	return filepath.Join(r.baseDir, c.File)
}

// Resolve opens the candidate's file and returns its position marker. With
// previewing true the buffer is tracked for auto-close, unless it was already
// open for an unrelated reason. With previewing false (commit) the buffer is
// opened permanently: a previously previewed buffer for the same file is
// promoted and never auto-closed, and any temporary buffer for a different
// file is closed first.
//
// Column is always 0; the indexer does not report column offsets.
func (r *Resolver) Resolve(c domain.Candidate, previewing bool) (domain.PositionMarker, error) {
	path := r.Path(c)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Previewing a different candidate, or committing to one, ends the
	// lifetime of every other temporarily opened buffer.
	r.closeTemporariesExcept(path)

	_, alreadyOpen, err := r.buffers.Open(path)
	if err != nil {
		return domain.PositionMarker{}, err
	}

	if previewing {
		if !alreadyOpen {
			r.temporary[path] = true
		}
	} else {
		// Committed buffers are never auto-closed
		delete(r.temporary, path)
	}

	return domain.PositionMarker{File: path, Line: c.Line, Column: 0}, nil
}

// Buffer returns the open buffer for a candidate's file, if any
func (r *Resolver) Buffer(c domain.Candidate) (*buffers.Buffer, bool) {
	path := r.Path(c)
	if !r.buffers.IsOpen(path) {
		return nil, false
	}
	buf, _, err := r.buffers.Open(path)
	if err != nil {
		return nil, false
	}
	return buf, true
}

// ClosePreview closes every buffer this resolver opened temporarily, each
// exactly once. Called on interaction exit, whether commit or abort.
func (r *Resolver) ClosePreview() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeTemporariesExcept("")
}

// closeTemporariesExcept closes and forgets all tracked temporary buffers
// other than keep. Caller holds r.mu.
func (r *Resolver) closeTemporariesExcept(keep string) {
	for path := range r.temporary {
		if path == keep {
			continue
		}
		r.buffers.Close(path)
		delete(r.temporary, path)
	}
}

// OpenPreviewCount reports how many preview-only buffers are currently
// tracked. Used by the UI status line and by cleanup checks.
func (r *Resolver) OpenPreviewCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.temporary)
}
