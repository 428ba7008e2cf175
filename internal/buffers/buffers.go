package buffers

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// Buffer is an open file's content, split into lines for display
type Buffer struct {
	Path  string
	Lines []string
}

// Slice returns lines [from, to) clamped to the buffer, 0-based
func (b *Buffer) Slice(from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to > len(b.Lines) {
		to = len(b.Lines)
	}
	if from >= to {
		return nil
	}
	return b.Lines[from:to]
}

// Manager owns open file buffers. The position resolver distinguishes
// buffers it opened for preview from buffers already open for other reasons,
// so Open reports whether the path was open before the call.
type Manager interface {
	Open(path string) (buf *Buffer, alreadyOpen bool, err error)
	Close(path string)
	IsOpen(path string) bool
}

// manager is the concrete implementation
type manager struct {
	mu   sync.Mutex
	open map[string]*Buffer
}

// NewManager creates an empty buffer manager
func NewManager() Manager {
	return &manager{open: make(map[string]*Buffer)}
}

// Open returns the buffer for path, reading the file on first open
func (m *manager) Open(path string) (*Buffer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if buf, ok := m.open[path]; ok {
		return buf, true, nil
	}

	buf, err := readFile(path)
	if err != nil {
		return nil, false, err
	}
	m.open[path] = buf
	return buf, false, nil
}

// Close discards the buffer for path, if open
func (m *manager) Close(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.open, path)
}

// IsOpen reports whether path currently has a buffer
func (m *manager) IsOpen(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.open[path]
	return ok
}

func readFile(path string) (*Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return &Buffer{Path: path, Lines: lines}, nil
}
