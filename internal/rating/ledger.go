// internal/rating/ledger.go
package rating

import "sort"

// Stats is a username's cumulative record for the life of the process.
type Stats struct {
	Wins  int `json:"wins"`
	Games int `json:"games"`
}

// Level scales the win ratio onto 0..10 (floor). It is always derived, never stored.
func Level(wins, games int) int {
	if games <= 0 {
		return 0
	}
	return 10 * wins / games
}

// Level is the derived level for this record.
func (s Stats) Level() int {
	return Level(s.Wins, s.Games)
}

// Ledger maps usernames to stats. It is not safe for concurrent use; the
// lobby directory guards it with its own mutex.
type Ledger struct {
	entries map[string]*Stats
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*Stats)}
}

// Touch creates the entry for username on first contact.
func (l *Ledger) Touch(username string) {
	if _, ok := l.entries[username]; !ok {
		l.entries[username] = &Stats{}
	}
}

// Get returns a copy of the entry; unknown usernames read as zero.
func (l *Ledger) Get(username string) Stats {
	if s, ok := l.entries[username]; ok {
		return *s
	}
	return Stats{}
}

// RecordMatch credits one game to every participant and one win to the winner.
// A username listed twice (two seats claiming the same name) is counted once.
func (l *Ledger) RecordMatch(winner string, participants []string) {
	seen := make(map[string]bool, len(participants))
	for _, name := range participants {
		if seen[name] {
			continue
		}
		seen[name] = true
		l.Touch(name)
		l.entries[name].Games++
	}
	if winner != "" {
		l.Touch(winner)
		l.entries[winner].Wins++
	}
}

// Usernames lists every known username in sorted order.
func (l *Ledger) Usernames() []string {
	names := make([]string, 0, len(l.entries))
	for name := range l.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len is the number of known usernames.
func (l *Ledger) Len() int {
	return len(l.entries)
}
