package server

import "sort"

// Presence tracks online users by their number of open connections.
// A user leaves the online set only when their last connection closes.
// It is not safe for concurrent use; the hub goroutine owns it.
type Presence struct {
	conns map[int]int
}

func NewPresence() *Presence {
	return &Presence{conns: make(map[int]int)}
}

// MarkOnline records a new connection for userId and reports whether
// the online set changed.
func (p *Presence) MarkOnline(userId int) bool {
	p.conns[userId]++
	return p.conns[userId] == 1
}

// MarkOffline records a closed connection for userId and reports
// whether the online set changed. Unknown users are ignored.
func (p *Presence) MarkOffline(userId int) bool {
	n, ok := p.conns[userId]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(p.conns, userId)
		return true
	}
	p.conns[userId] = n - 1
	return false
}

func (p *Presence) IsOnline(userId int) bool {
	_, ok := p.conns[userId]
	return ok
}

func (p *Presence) Len() int {
	return len(p.conns)
}

// Snapshot returns the online user ids in ascending order. It never
// returns nil.
func (p *Presence) Snapshot() []int {
	ids := make([]int, 0, len(p.conns))
	for id := range p.conns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
