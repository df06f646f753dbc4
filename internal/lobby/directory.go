// internal/lobby/directory.go
package lobby

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/dominoes/internal/domino"
	"github.com/jason-s-yu/dominoes/internal/models"
	"github.com/jason-s-yu/dominoes/internal/protocol"
	"github.com/jason-s-yu/dominoes/internal/rating"
	"github.com/sirupsen/logrus"
)

// Options configures a Directory.
type Options struct {
	ServerName         string
	MaxLobbies         int
	MaxPlayersPerLobby int
	DefaultDifficulty  domino.Difficulty
	// TurnTimeout auto-passes a seat that has not moved in time. Zero disables it.
	TurnTimeout time.Duration
	// NewRand supplies each lobby's shuffle source. Defaults to a time-seeded source.
	NewRand func() *rand.Rand
}

// Directory owns the lobby id space, the connected-client registry and the
// stats ledger.
//
// Lock order is lobby then directory: a lobby may call into the directory
// while holding its own lock, so the directory never takes a lobby lock while
// holding mu.
type Directory struct {
	opts Options

	mu      sync.Mutex
	lobbies map[int64]*Lobby
	nextID  int64
	clients map[uuid.UUID]Peer
	ledger  *rating.Ledger

	journal Journal
	logger  *logrus.Logger
}

// NewDirectory returns an empty directory. A nil journal discards records.
func NewDirectory(opts Options, journal Journal, logger *logrus.Logger) *Directory {
	if opts.MaxLobbies <= 0 {
		opts.MaxLobbies = 4
	}
	if opts.MaxPlayersPerLobby < 2 {
		opts.MaxPlayersPerLobby = 2
	}
	if opts.MaxPlayersPerLobby > domino.MaxSeats {
		opts.MaxPlayersPerLobby = domino.MaxSeats
	}
	if opts.DefaultDifficulty == "" {
		opts.DefaultDifficulty = domino.Normal
	}
	if opts.NewRand == nil {
		opts.NewRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	if journal == nil {
		journal = NopJournal{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Directory{
		opts:    opts,
		lobbies: make(map[int64]*Lobby),
		nextID:  1,
		clients: make(map[uuid.UUID]Peer),
		ledger:  rating.NewLedger(),
		journal: journal,
		logger:  logger,
	}
}

// Register records a connected client and creates its stats entry.
func (d *Directory) Register(p Peer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients[p.ID()] = p
	d.ledger.Touch(p.Username())
}

// Unregister forgets a client. It does not touch lobby seats; see Disconnect.
func (d *Directory) Unregister(p Peer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.clients, p.ID())
}

// Create allocates a lobby hosted by host. maxPlayers of 0 and an empty
// difficulty select the server defaults. The host is not seated.
func (d *Directory) Create(host string, maxPlayers int, diff domino.Difficulty) (*Lobby, error) {
	if maxPlayers == 0 {
		maxPlayers = d.opts.MaxPlayersPerLobby
	}
	if maxPlayers < 2 || maxPlayers > d.opts.MaxPlayersPerLobby {
		return nil, models.ErrCapacityOutOfRange
	}
	if diff == "" {
		diff = d.opts.DefaultDifficulty
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.lobbies) >= d.opts.MaxLobbies {
		return nil, models.ErrNoLobbySlots
	}
	id := d.nextID
	d.nextID++

	l := &Lobby{
		ID:          id,
		Capacity:    maxPlayers,
		Difficulty:  diff,
		Host:        host,
		CreatedAt:   time.Now(),
		rng:         d.opts.NewRand(),
		turnTimeout: d.opts.TurnTimeout,
		dir:         d,
		journal:     d.journal,
		logger:      d.logger.WithField("lobby", id),
	}
	d.lobbies[id] = l
	d.ledger.Touch(host)

	l.logger.WithFields(logrus.Fields{"host": host, "max_players": maxPlayers, "difficulty": diff}).Info("lobby created")
	return l, nil
}

// Lookup returns the live lobby with the given id.
func (d *Directory) Lookup(id int64) (*Lobby, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.lobbies[id]
	if !ok {
		return nil, models.ErrLobbyNotFound
	}
	return l, nil
}

func (d *Directory) Join(id int64, p Peer) error {
	l, err := d.Lookup(id)
	if err != nil {
		return err
	}
	return l.Join(p)
}

func (d *Directory) Leave(id int64, p Peer) error {
	l, err := d.Lookup(id)
	if err != nil {
		return err
	}
	return l.Leave(p)
}

func (d *Directory) Start(id int64, p Peer) error {
	l, err := d.Lookup(id)
	if err != nil {
		return err
	}
	return l.Start(p)
}

func (d *Directory) Move(id int64, p Peer, mv protocol.Move) error {
	l, err := d.Lookup(id)
	if err != nil {
		return err
	}
	return l.Move(p, mv)
}

func (d *Directory) Status(id int64, p Peer) error {
	l, err := d.Lookup(id)
	if err != nil {
		return err
	}
	return l.Status(p)
}

// Disconnect removes p from every lobby it is seated in, exactly as an
// explicit leave would.
func (d *Directory) Disconnect(p Peer) {
	for _, l := range d.snapshot() {
		if l.Seated(p) {
			_ = l.Leave(p)
		}
	}
}

// snapshot copies the live lobbies ordered by id so callers can lock them
// without holding d.mu.
func (d *Directory) snapshot() []*Lobby {
	d.mu.Lock()
	out := make([]*Lobby, 0, len(d.lobbies))
	for _, l := range d.lobbies {
		out = append(out, l)
	}
	d.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// List is the read-only snapshot returned on hello and list.
func (d *Directory) List() models.ServerInfo {
	lobbies := d.snapshot()
	summaries := make([]models.LobbySummary, 0, len(lobbies))
	for _, l := range lobbies {
		summaries = append(summaries, l.Summary())
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return models.ServerInfo{
		ServerName:         d.opts.ServerName,
		MaxLobbies:         d.opts.MaxLobbies,
		MaxPlayersPerLobby: d.opts.MaxPlayersPerLobby,
		DefaultDifficulty:  string(d.opts.DefaultDifficulty),
		CurrentLobbyCount:  len(d.lobbies),
		PlayersConnected:   len(d.clients),
		Lobbies:            summaries,
	}
}

// Stats returns username's record; unknown names read as zero.
func (d *Directory) Stats(username string) rating.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ledger.Get(username)
}

// Level is the derived 0..10 level for username.
func (d *Directory) Level(username string) int {
	return d.Stats(username).Level()
}

// LobbyCount is the number of live lobbies.
func (d *Directory) LobbyCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lobbies)
}

func (d *Directory) touch(username string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ledger.Touch(username)
}

// recordResult is called by a lobby, under its lock, as a match ends.
func (d *Directory) recordResult(winner string, participants []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ledger.RecordMatch(winner, participants)
}

func (d *Directory) removeLobby(l *Lobby) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.lobbies[l.ID]; ok && cur == l {
		delete(d.lobbies, l.ID)
		l.logger.Info("lobby removed from directory")
	}
}
