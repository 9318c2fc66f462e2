// Package stream tails task log files and fans appended output out to
// SSE subscribers. Runs execute as detached OS processes, so the only
// live signal is the log file itself: each active stream polls its
// file for growth and publishes the new bytes as chunks.
package stream

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/paths"
	"github.com/agentdeck/agentdeck/internal/runlog"
)

// OutputChunk is one slice of appended log output.
type OutputChunk struct {
	TaskID    string    `json:"task_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CompletionEvent signals that a completion marker appeared in the log.
type CompletionEvent struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// Client is one connected subscriber.
type Client struct {
	ID       string
	Chunks   chan OutputChunk
	Complete chan CompletionEvent
	Done     chan struct{}
}

type taskStream struct {
	taskID  string
	clients map[string]*Client
	stop    chan struct{}
	mu      sync.Mutex
}

// Manager owns the active tails. A tail starts with the first
// subscriber for a task and stops when the last one leaves.
type Manager struct {
	layout   paths.Layout
	logger   *zap.Logger
	interval time.Duration

	streams map[string]*taskStream
	mu      sync.Mutex
}

// NewManager creates a manager polling log files every interval.
func NewManager(layout paths.Layout, interval time.Duration, logger *zap.Logger) *Manager {
	if interval <= 0 {
		interval = time.Second
	}
	return &Manager{
		layout:   layout,
		logger:   logger.Named("stream"),
		interval: interval,
		streams:  make(map[string]*taskStream),
	}
}

// Subscribe registers a client for a task's log output. The tail begins
// at the current end of file: subscribers see new output only.
func (m *Manager) Subscribe(taskID, clientID string) *Client {
	client := &Client{
		ID:       clientID,
		Chunks:   make(chan OutputChunk, 64),
		Complete: make(chan CompletionEvent, 1),
		Done:     make(chan struct{}),
	}

	m.mu.Lock()
	st, ok := m.streams[taskID]
	if !ok {
		st = &taskStream{
			taskID:  taskID,
			clients: make(map[string]*Client),
			stop:    make(chan struct{}),
		}
		m.streams[taskID] = st
		go m.tail(st)
	}
	m.mu.Unlock()

	st.mu.Lock()
	st.clients[clientID] = client
	st.mu.Unlock()
	return client
}

// Unsubscribe removes a client. The tail goroutine exits once the last
// client for the task is gone.
func (m *Manager) Unsubscribe(taskID, clientID string) {
	m.mu.Lock()
	st, ok := m.streams[taskID]
	m.mu.Unlock()
	if !ok {
		return
	}

	st.mu.Lock()
	if client, ok := st.clients[clientID]; ok {
		close(client.Done)
		delete(st.clients, clientID)
	}
	empty := len(st.clients) == 0
	st.mu.Unlock()

	if empty {
		m.mu.Lock()
		if cur, ok := m.streams[taskID]; ok && cur == st {
			close(st.stop)
			delete(m.streams, taskID)
		}
		m.mu.Unlock()
	}
}

// ActiveTails reports how many tasks are currently being tailed.
func (m *Manager) ActiveTails() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

func (m *Manager) tail(st *taskStream) {
	logPath := m.layout.Log(st.taskID)

	// Start at the current end so subscribers only see fresh output.
	var offset int64
	if info, err := os.Stat(logPath); err == nil {
		offset = info.Size()
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-st.stop:
			return
		case <-ticker.C:
		}

		info, err := os.Stat(logPath)
		if err != nil {
			continue
		}
		if info.Size() < offset {
			// Truncated or replaced; restart from the top.
			offset = 0
		}
		if info.Size() == offset {
			continue
		}

		text, n, err := readFrom(logPath, offset)
		if err != nil {
			m.logger.Warn("tail read failed",
				zap.String("task", st.taskID), zap.Error(err))
			continue
		}
		offset += n
		if text == "" {
			continue
		}

		m.publish(st, OutputChunk{
			TaskID:    st.taskID,
			Text:      text,
			Timestamp: time.Now(),
		})
		if strings.Contains(text, runlog.CompleteMarkerPrefix) {
			m.complete(st)
		}
	}
}

func readFrom(path string, offset int64) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return "", 0, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", 0, err
	}
	return string(data), int64(len(data)), nil
}

func (m *Manager) publish(st *taskStream, chunk OutputChunk) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, client := range st.clients {
		select {
		case client.Chunks <- chunk:
		default:
			// Slow client, drop the chunk rather than stall the tail.
		}
	}
}

func (m *Manager) complete(st *taskStream) {
	status := runlog.LastStatusFromFiles(m.layout.Log(st.taskID), m.layout.ErrorLog(st.taskID))

	st.mu.Lock()
	defer st.mu.Unlock()
	for _, client := range st.clients {
		select {
		case client.Complete <- CompletionEvent{TaskID: st.taskID, Status: string(status)}:
		default:
		}
	}
}
