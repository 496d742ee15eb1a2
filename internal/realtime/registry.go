package realtime

import (
	"hash/fnv"
	"sync"
)

// PresenceHooks receives callbacks when a staff identity transitions between
// having zero and at least one live session.
type PresenceHooks struct {
	OnOnline  func(staffID string)
	OnOffline func(staffID string)
}

// Registry is the in-process routing table mapping staff identities to
// their live sessions. It is sharded by staff id so mutations for one staff
// key never contend with unrelated keys.
type Registry struct {
	shards []*registryShard
	mask   uint32
	hooks  PresenceHooks
}

type registryShard struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*Session
}

// NewRegistry creates a registry with 2^shardBits shards.
func NewRegistry(shardBits int, hooks PresenceHooks) *Registry {
	if shardBits < 0 || shardBits > 10 {
		shardBits = 5
	}
	n := 1 << shardBits
	shards := make([]*registryShard, n)
	for i := range shards {
		shards[i] = &registryShard{sessions: make(map[string]map[string]*Session)}
	}
	return &Registry{shards: shards, mask: uint32(n - 1), hooks: hooks}
}

func (r *Registry) shardFor(staffID string) *registryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(staffID))
	return r.shards[h.Sum32()&r.mask]
}

// Register adds a session binding. Registering the same session twice is a
// no-op.
func (r *Registry) Register(session *Session) {
	shard := r.shardFor(session.StaffID)

	shard.mu.Lock()
	bindings, ok := shard.sessions[session.StaffID]
	if !ok {
		bindings = make(map[string]*Session)
		shard.sessions[session.StaffID] = bindings
	}
	_, exists := bindings[session.ID]
	bindings[session.ID] = session
	first := !exists && len(bindings) == 1
	shard.mu.Unlock()

	if first && r.hooks.OnOnline != nil {
		r.hooks.OnOnline(session.StaffID)
	}
}

// Unregister removes a session binding. Unknown bindings are ignored so
// disconnects after a crash never raise.
func (r *Registry) Unregister(staffID, sessionID string) {
	shard := r.shardFor(staffID)

	shard.mu.Lock()
	bindings, ok := shard.sessions[staffID]
	if !ok {
		shard.mu.Unlock()
		return
	}
	session, exists := bindings[sessionID]
	if exists {
		delete(bindings, sessionID)
	}
	last := exists && len(bindings) == 0
	if last {
		delete(shard.sessions, staffID)
	}
	shard.mu.Unlock()

	if exists {
		session.Close()
	}
	if last && r.hooks.OnOffline != nil {
		r.hooks.OnOffline(staffID)
	}
}

// SessionsFor returns a snapshot of the live sessions for a staff identity.
func (r *Registry) SessionsFor(staffID string) []*Session {
	shard := r.shardFor(staffID)

	shard.mu.RLock()
	defer shard.mu.RUnlock()
	bindings := shard.sessions[staffID]
	if len(bindings) == 0 {
		return nil
	}
	sessions := make([]*Session, 0, len(bindings))
	for _, session := range bindings {
		sessions = append(sessions, session)
	}
	return sessions
}

// Count returns the number of live sessions for a staff identity.
func (r *Registry) Count(staffID string) int {
	shard := r.shardFor(staffID)

	shard.mu.RLock()
	defer shard.mu.RUnlock()
	return len(shard.sessions[staffID])
}
