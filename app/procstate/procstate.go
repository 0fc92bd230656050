package procstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const (
	stateFileName = "tubewatch.state"
	stopFileName  = "tubewatch.stop"
)

// State is the running process's handshake file. External tooling reads it
// to find a live instance and drops a stop file next to it to request a
// shutdown.
type State struct {
	PID       int       `json:"pid"`
	Port      string    `json:"port"`
	StartedAt time.Time `json:"started_at"`
}

type Manager struct {
	dir string
}

func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

func (m *Manager) statePath() string {
	return filepath.Join(m.dir, stateFileName)
}

func (m *Manager) stopPath() string {
	return filepath.Join(m.dir, stopFileName)
}

// WriteState records this process. Any stale stop request is cleared so an
// old stop file cannot kill a fresh instance.
func (m *Manager) WriteState(port string) error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	os.Remove(m.stopPath())

	state := State{
		PID:       os.Getpid(),
		Port:      port,
		StartedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(m.statePath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

// ReadState returns the recorded state if the process it names is still
// alive, nil otherwise. A stale file from a dead process is removed.
func (m *Manager) ReadState() (*State, error) {
	data, err := os.ReadFile(m.statePath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		os.Remove(m.statePath())
		return nil, nil
	}

	if !processAlive(state.PID) {
		os.Remove(m.statePath())
		return nil, nil
	}

	return &state, nil
}

// RequestStop asks a running instance to shut down by dropping a stop file.
func (m *Manager) RequestStop() error {
	state, err := m.ReadState()
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("no running instance found")
	}

	if err := os.WriteFile(m.stopPath(), []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to write stop file: %w", err)
	}

	return nil
}

// StopRequested reports whether a stop file is present.
func (m *Manager) StopRequested() bool {
	_, err := os.Stat(m.stopPath())
	return err == nil
}

// Cleanup removes the handshake files on shutdown.
func (m *Manager) Cleanup() {
	os.Remove(m.statePath())
	os.Remove(m.stopPath())
}

// processAlive probes a PID with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
