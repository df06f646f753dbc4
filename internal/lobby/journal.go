// internal/lobby/journal.go
package lobby

import "github.com/jason-s-yu/dominoes/internal/models"

// Journal receives match action records. Record is called with the lobby lock
// held and must not block.
type Journal interface {
	Record(rec models.ActionRecord)
}

// NopJournal discards everything.
type NopJournal struct{}

func (NopJournal) Record(models.ActionRecord) {}
