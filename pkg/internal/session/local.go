package session

import (
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/luner-app/luner/pkg/internal/models"
)

// LocalState is the reload-continuity cache: the per-browser client id plus
// the last-known profile, serialized to a single file. The remote store stays
// authoritative and overwrites the cached profile on the next sync.
type LocalState struct {
	mu   sync.Mutex
	path string
	data localData
}

type localData struct {
	ClientID string          `json:"clientId"`
	Profile  *models.Profile `json:"profile,omitempty"`
}

func NewLocalState(path string) *LocalState {
	state := &LocalState{path: path}
	state.load()
	return state
}

func (s *LocalState) load() {
	if len(s.path) == 0 {
		return
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	_ = jsoniter.Unmarshal(raw, &s.data)
}

func (s *LocalState) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ClientID
}

func (s *LocalState) CachedProfile() *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Profile
}

func (s *LocalState) Remember(clientID string, profile *models.Profile) {
	s.mu.Lock()
	s.data = localData{ClientID: clientID, Profile: profile}
	s.mu.Unlock()
	s.flush()
}

func (s *LocalState) Clear() {
	s.mu.Lock()
	s.data = localData{}
	s.mu.Unlock()
	if len(s.path) > 0 {
		_ = os.Remove(s.path)
	}
}

func (s *LocalState) flush() {
	if len(s.path) == 0 {
		return
	}
	s.mu.Lock()
	raw, err := jsoniter.Marshal(s.data)
	s.mu.Unlock()
	if err != nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(s.path), 0o755)
	_ = os.WriteFile(s.path, raw, 0o600)
}
