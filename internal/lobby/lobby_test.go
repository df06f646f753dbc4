// internal/lobby/lobby_test.go
package lobby

import (
	"fmt"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/dominoes/internal/domino"
	"github.com/jason-s-yu/dominoes/internal/models"
	"github.com/jason-s-yu/dominoes/internal/protocol"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockPeer collects envelopes instead of writing them to a connection.
type mockPeer struct {
	id       uuid.UUID
	username string

	mu      sync.Mutex
	events  []*protocol.Envelope
	limit   int // refuse once this many are queued; 0 means unlimited
	dropped string
}

func newMockPeer(name string) *mockPeer {
	return &mockPeer{id: uuid.New(), username: name}
}

func (p *mockPeer) ID() uuid.UUID     { return p.id }
func (p *mockPeer) Username() string { return p.username }

func (p *mockPeer) Send(env *protocol.Envelope) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dropped != "" || (p.limit > 0 && len(p.events) >= p.limit) {
		return false
	}
	p.events = append(p.events, env)
	return true
}

func (p *mockPeer) Drop(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropped = reason
}

func (p *mockPeer) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

func (p *mockPeer) all() []*protocol.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*protocol.Envelope(nil), p.events...)
}

func (p *mockPeer) last() *protocol.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

func (p *mockPeer) updates() []*protocol.Update {
	var out []*protocol.Update
	for _, env := range p.all() {
		if env.Update != nil {
			out = append(out, env.Update)
		}
	}
	return out
}

func (p *mockPeer) gameOver() *protocol.GameOver {
	for _, env := range p.all() {
		if env.GameOver != nil {
			return env.GameOver
		}
	}
	return nil
}

type mockJournal struct {
	mock.Mock
}

func (j *mockJournal) Record(rec models.ActionRecord) {
	j.Called(rec)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestDirectory(t *testing.T, opts Options) *Directory {
	t.Helper()
	if opts.MaxLobbies == 0 {
		opts.MaxLobbies = 4
	}
	if opts.MaxPlayersPerLobby == 0 {
		opts.MaxPlayersPerLobby = 4
	}
	opts.NewRand = func() *rand.Rand { return rand.New(rand.NewSource(42)) }
	return NewDirectory(opts, nil, quietLogger())
}

// setupTestLobby creates a lobby hosted by the first of numPlayers peers and
// seats them all.
func setupTestLobby(t *testing.T, d *Directory, numPlayers int) (*Lobby, []*mockPeer) {
	t.Helper()
	names := []string{"alice", "bob", "carol", "dave"}
	peers := make([]*mockPeer, numPlayers)
	for i := range peers {
		peers[i] = newMockPeer(names[i])
		d.Register(peers[i])
	}
	l, err := d.Create(peers[0].Username(), 0, "")
	require.NoError(t, err)
	for _, p := range peers {
		require.NoError(t, l.Join(p))
	}
	return l, peers
}

func startTestLobby(t *testing.T, l *Lobby, peers []*mockPeer) {
	t.Helper()
	require.NoError(t, l.Start(peers[0]))
	for _, p := range peers {
		p.clear()
	}
}

// rigMatch replaces the dealt state so a test controls every tile.
func rigMatch(l *Lobby, chain []domino.Tile, hands ...domino.Hand) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.match.chain = domino.Chain{}
	for _, t := range chain {
		_, _ = l.match.chain.Place(t, domino.Right)
	}
	for i, h := range hands {
		l.match.players[i].hand = h
	}
}

func tile(a, b int) domino.Tile {
	return domino.Tile{A: a, B: b}
}

func placeMove(id int64, t domino.Tile, side domino.Side) protocol.Move {
	return protocol.Move{LobbyID: id, Tile: t, Side: side}
}

func passMove(id int64) protocol.Move {
	return protocol.Move{LobbyID: id, Pass: true}
}

func currentTurn(l *Lobby) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.match.turn
}

func tileCount(l *Lobby) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.match.tileCount()
}

func TestJoinBroadcastsSeatList(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 2)

	joined := peers[1].all()[0].Joined
	require.NotNil(t, joined)
	assert.Equal(t, []string{"alice", "bob"}, joined.Players)
	assert.Equal(t, "alice", joined.Host)
	assert.Equal(t, "normal", joined.Difficulty)

	upd := peers[0].last().LobbyUpdate
	require.NotNil(t, upd)
	assert.Equal(t, []string{"alice", "bob"}, upd.Players)

	assert.ErrorIs(t, l.Join(peers[1]), models.ErrAlreadySeated)
}

func TestJoinRejectedWhenFullOrStarted(t *testing.T) {
	d := newTestDirectory(t, Options{MaxPlayersPerLobby: 2})
	l, peers := setupTestLobby(t, d, 2)

	assert.ErrorIs(t, l.Join(newMockPeer("carol")), models.ErrLobbyFull)

	require.NoError(t, l.Leave(peers[1]))
	require.NoError(t, l.Join(peers[1]))
	require.NoError(t, l.Start(peers[0]))

	// A started lobby reports that before it reports being full.
	assert.ErrorIs(t, l.Join(newMockPeer("dave")), models.ErrAlreadyStarted)
}

func TestStartErrors(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 1)

	assert.ErrorIs(t, l.Start(peers[0]), models.ErrNotEnoughSeats)

	bob := newMockPeer("bob")
	require.NoError(t, l.Join(bob))
	assert.ErrorIs(t, l.Start(bob), models.ErrNotHost)
	assert.False(t, l.Started())

	require.NoError(t, l.Start(peers[0]))
	assert.True(t, l.Started())
	assert.ErrorIs(t, l.Start(peers[0]), models.ErrAlreadyStarted)
	assert.ErrorIs(t, l.Join(newMockPeer("carol")), models.ErrAlreadyStarted)
}

func TestStartDealsPrivateHands(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 2)
	require.NoError(t, l.Start(peers[0]))

	var hands [][]domino.Tile
	for _, p := range peers {
		gs := p.last().GameStart
		require.NotNil(t, gs)
		assert.Len(t, gs.YourHand, 12)
		assert.Empty(t, gs.Chain)
		assert.Equal(t, "alice", gs.Turn)
		assert.Equal(t, []string{"alice", "bob"}, gs.Players)
		hands = append(hands, gs.YourHand)
	}
	for _, a := range hands[0] {
		for _, b := range hands[1] {
			assert.False(t, a.Same(b), "tile %s dealt twice", a)
		}
	}
	assert.Equal(t, domino.SetSize, tileCount(l))
}

func TestStartClampsDealForManySeats(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 3)
	require.NoError(t, l.Start(peers[0]))

	for _, p := range peers {
		assert.Len(t, p.last().GameStart.YourHand, 9)
	}
	l.mu.Lock()
	assert.Len(t, l.match.boneyard, 1)
	l.mu.Unlock()
	assert.Equal(t, domino.SetSize, tileCount(l))
}

func TestPassRotatesTurn(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 3)
	startTestLobby(t, l, peers)

	require.NoError(t, l.Move(peers[0], passMove(l.ID)))
	assert.Equal(t, 1, currentTurn(l))

	for _, p := range peers {
		ups := p.updates()
		require.Len(t, ups, 1)
		assert.Equal(t, "alice", ups[0].PassedBy)
		assert.Equal(t, "bob", ups[0].Turn)
		assert.Len(t, ups[0].HandSizes, 3)
	}

	require.NoError(t, l.Move(peers[1], passMove(l.ID)))
	assert.Equal(t, 2, currentTurn(l))
	assert.True(t, l.Started())
}

func TestPlacementOrientsTileAgainstEnd(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 2)
	startTestLobby(t, l, peers)
	rigMatch(l, []domino.Tile{tile(5, 5)},
		domino.Hand{tile(0, 1), tile(2, 2)},
		domino.Hand{tile(3, 5), tile(6, 6)},
	)
	require.NoError(t, l.Move(peers[0], passMove(l.ID)))

	require.NoError(t, l.Move(peers[1], placeMove(l.ID, tile(3, 5), domino.Right)))

	ups := peers[0].updates()
	require.Len(t, ups, 2)
	placed := ups[1]
	assert.Equal(t, "bob", placed.PlacedBy)
	require.NotNil(t, placed.PlacedTile)
	assert.Equal(t, tile(5, 3), *placed.PlacedTile)
	assert.Equal(t, []domino.Tile{tile(5, 5), tile(5, 3)}, placed.Chain)
	assert.Equal(t, "alice", placed.Turn)

	l.mu.Lock()
	assert.Equal(t, 0, l.match.passes)
	assert.Equal(t, domino.Hand{tile(6, 6)}, l.match.players[1].hand)
	l.mu.Unlock()
}

func TestRejectedMovesLeaveStateUnchanged(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 2)
	startTestLobby(t, l, peers)
	rigMatch(l, []domino.Tile{tile(5, 5)},
		domino.Hand{tile(0, 1), tile(2, 2)},
		domino.Hand{tile(3, 5)},
	)

	assert.ErrorIs(t, l.Move(peers[1], placeMove(l.ID, tile(3, 5), domino.Right)), models.ErrNotYourTurn)

	err := l.Move(peers[0], placeMove(l.ID, tile(6, 6), domino.Right))
	require.ErrorIs(t, err, models.ErrTileNotHeld)
	var he *HandError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, []domino.Tile{tile(0, 1), tile(2, 2)}, he.Hand)

	err = l.Move(peers[0], placeMove(l.ID, tile(1, 0), domino.Left))
	require.ErrorIs(t, err, models.ErrTileMismatch)
	assert.Contains(t, err.Error(), "left end")
	assert.Equal(t, models.KindTile, models.KindOf(err))

	assert.Equal(t, 0, currentTurn(l))
	assert.Empty(t, peers[0].updates())
	assert.Empty(t, peers[1].updates())

	l.mu.Lock()
	assert.Equal(t, 1, l.match.chain.Len())
	assert.Len(t, l.match.players[0].hand, 2)
	l.mu.Unlock()
}

func TestMoveErrorsOutsideMatch(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 2)

	assert.ErrorIs(t, l.Move(peers[0], passMove(l.ID)), models.ErrNotStarted)
	assert.ErrorIs(t, l.Move(newMockPeer("eve"), passMove(l.ID)), models.ErrNotSeated)
}

func TestTilesAreConservedThroughPlay(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 2)
	startTestLobby(t, l, peers)

	// Play whatever fits, pass otherwise, until the match ends.
	for i := 0; i < 200 && l.Started(); i++ {
		turn := currentTurn(l)
		l.mu.Lock()
		hand := l.match.players[turn].hand.Clone()
		chain := l.match.chain
		l.mu.Unlock()

		mv := passMove(l.ID)
		for _, tl := range hand {
			if side, ok := fittingSide(chain, tl); ok {
				mv = placeMove(l.ID, tl, side)
				break
			}
		}
		require.NoError(t, l.Move(peers[turn], mv))
		if l.Started() {
			assert.Equal(t, domino.SetSize, tileCount(l))
		}
	}
	assert.False(t, l.Started())
	assert.NotNil(t, peers[0].gameOver())
}

func fittingSide(c domino.Chain, tl domino.Tile) (domino.Side, bool) {
	left, right, ok := c.Ends()
	if !ok {
		return domino.Right, true
	}
	if _, fits := domino.OrientRight(tl, right); fits {
		return domino.Right, true
	}
	if _, fits := domino.OrientLeft(tl, left); fits {
		return domino.Left, true
	}
	return "", false
}

func TestWinEndsMatchAndRecordsStats(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 2)
	startTestLobby(t, l, peers)
	rigMatch(l, nil,
		domino.Hand{tile(4, 4)},
		domino.Hand{tile(1, 2), tile(3, 3)},
	)

	require.NoError(t, l.Move(peers[0], placeMove(l.ID, tile(4, 4), domino.Right)))

	for _, p := range peers {
		over := p.gameOver()
		require.NotNil(t, over)
		assert.Equal(t, "alice", over.Winner)
		assert.False(t, over.Blocked)
		assert.Empty(t, over.Sums)
		require.Len(t, over.Hands, 2)
		assert.Equal(t, []domino.Tile{tile(1, 2), tile(3, 3)}, over.Hands[1].Hand)
	}

	assert.False(t, l.Started())
	assert.Equal(t, []string{"alice", "bob"}, l.Players())
	assert.Equal(t, 1, d.Stats("alice").Wins)
	assert.Equal(t, 1, d.Stats("alice").Games)
	assert.Equal(t, 0, d.Stats("bob").Wins)
	assert.Equal(t, 1, d.Stats("bob").Games)
	assert.Equal(t, 10, d.Level("alice"))
	assert.Equal(t, 0, d.Level("bob"))

	// Seats are kept for a rematch.
	require.NoError(t, l.Start(peers[0]))
	assert.True(t, l.Started())
}

func TestBlockPicksLowestPipsWithSeatTieBreak(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 3)
	startTestLobby(t, l, peers)
	rigMatch(l, []domino.Tile{tile(6, 6)},
		domino.Hand{tile(4, 4)},
		domino.Hand{tile(1, 2)},
		domino.Hand{tile(0, 3)},
	)

	require.NoError(t, l.Move(peers[0], passMove(l.ID)))
	require.NoError(t, l.Move(peers[1], passMove(l.ID)))
	assert.True(t, l.Started())
	require.NoError(t, l.Move(peers[2], passMove(l.ID)))

	over := peers[0].gameOver()
	require.NotNil(t, over)
	assert.True(t, over.Blocked)
	assert.Equal(t, "bob", over.Winner)
	assert.Equal(t, 1, over.WinnerRosterIndex)
	assert.Equal(t, []protocol.PipSum{
		{RosterIndex: 0, Username: "alice", Sum: 8},
		{RosterIndex: 1, Username: "bob", Sum: 3},
		{RosterIndex: 2, Username: "carol", Sum: 3},
	}, over.Sums)
	assert.Equal(t, 1, d.Stats("bob").Wins)
	assert.Equal(t, 0, d.Stats("carol").Wins)
	assert.Equal(t, 1, d.Stats("carol").Games)
}

func TestPlacementResetsPassCount(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 2)
	startTestLobby(t, l, peers)
	rigMatch(l, []domino.Tile{tile(6, 6)},
		domino.Hand{tile(0, 0), tile(2, 1)},
		domino.Hand{tile(6, 1), tile(3, 3)},
	)

	require.NoError(t, l.Move(peers[0], passMove(l.ID)))
	require.NoError(t, l.Move(peers[1], placeMove(l.ID, tile(6, 1), domino.Left)))
	require.NoError(t, l.Move(peers[0], passMove(l.ID)))
	assert.True(t, l.Started())
	require.NoError(t, l.Move(peers[1], passMove(l.ID)))

	assert.False(t, l.Started())
	over := peers[0].gameOver()
	require.NotNil(t, over)
	assert.True(t, over.Blocked)
	assert.Equal(t, "alice", over.Winner)
}

func TestChatIsBroadcastBeforeMoveEvenIfRejected(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 2)
	startTestLobby(t, l, peers)
	rigMatch(l, []domino.Tile{tile(5, 5)},
		domino.Hand{tile(0, 1)},
		domino.Hand{tile(3, 5)},
	)

	mv := placeMove(l.ID, tile(6, 6), domino.Right)
	mv.Chat = "watch this"
	assert.ErrorIs(t, l.Move(peers[0], mv), models.ErrTileNotHeld)
	require.Len(t, peers[1].all(), 1)
	assert.Equal(t, "watch this", peers[1].last().Chat.Text)

	peers[1].clear()
	mv = passMove(l.ID)
	mv.Chat = "nothing fits"
	require.NoError(t, l.Move(peers[0], mv))
	evs := peers[1].all()
	require.Len(t, evs, 2)
	require.NotNil(t, evs[0].Chat)
	assert.Equal(t, "alice", evs[0].Chat.From)
	require.NotNil(t, evs[1].Update)
}

func TestLeaveMidMatchMovesTurnToNextSeat(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 3)
	startTestLobby(t, l, peers)
	require.NoError(t, l.Move(peers[0], passMove(l.ID)))
	require.Equal(t, 1, currentTurn(l))

	require.NoError(t, l.Leave(peers[1]))

	assert.True(t, l.Started())
	assert.Equal(t, 1, currentTurn(l))
	ups := peers[0].updates()
	require.NotEmpty(t, ups)
	assert.Equal(t, "carol", ups[len(ups)-1].Turn)
	assert.NotNil(t, peers[1].last().Left)
	assert.Equal(t, domino.SetSize, tileCount(l))

	assert.ErrorIs(t, l.Move(peers[1], passMove(l.ID)), models.ErrNotSeated)

	// alice and carol have now both passed: every remaining seat passed in a row.
	require.NoError(t, l.Move(peers[2], passMove(l.ID)))
	assert.False(t, l.Started())
	assert.True(t, peers[0].gameOver().Blocked)
}

func TestLeaveBeforeTurnShiftsIndex(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 3)
	startTestLobby(t, l, peers)
	rigMatch(l, nil,
		domino.Hand{tile(0, 0)},
		domino.Hand{tile(1, 1), tile(2, 2)},
		domino.Hand{tile(3, 3)},
	)
	require.NoError(t, l.Move(peers[0], passMove(l.ID)))
	require.NoError(t, l.Move(peers[1], placeMove(l.ID, tile(1, 1), domino.Right)))
	require.Equal(t, 2, currentTurn(l))

	require.NoError(t, l.Leave(peers[0]))
	assert.True(t, l.Started())
	assert.Equal(t, 1, currentTurn(l))
	ups := peers[2].updates()
	assert.Equal(t, "carol", ups[len(ups)-1].Turn)
}

func TestLeaveCanCompleteBlock(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 3)
	startTestLobby(t, l, peers)
	require.NoError(t, l.Move(peers[0], passMove(l.ID)))
	require.NoError(t, l.Move(peers[1], passMove(l.ID)))

	// Two passes in a row against two remaining seats.
	require.NoError(t, l.Leave(peers[2]))

	assert.False(t, l.Started())
	over := peers[0].gameOver()
	require.NotNil(t, over)
	assert.True(t, over.Blocked)
	require.Len(t, over.Sums, 2)
	for _, s := range over.Sums {
		assert.NotEqual(t, "carol", s.Username)
	}
	assert.Equal(t, 1, d.Stats("carol").Games)
}

func TestLeaveMidMatchLastOpponentForfeits(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 2)
	startTestLobby(t, l, peers)

	require.NoError(t, l.Leave(peers[0]))

	over := peers[1].gameOver()
	require.NotNil(t, over)
	assert.True(t, over.Forfeit)
	assert.Equal(t, "bob", over.Winner)
	assert.True(t, over.Hands[0].Forfeited)
	assert.False(t, l.Started())
	assert.Equal(t, 1, d.Stats("bob").Wins)
	assert.Equal(t, 1, d.Stats("alice").Games)

	// Leaving twice is a no-op.
	require.NoError(t, l.Leave(peers[0]))
}

func TestTurnTimeoutAutoPasses(t *testing.T) {
	d := newTestDirectory(t, Options{TurnTimeout: 20 * time.Millisecond})
	l, peers := setupTestLobby(t, d, 2)
	startTestLobby(t, l, peers)

	require.Eventually(t, func() bool {
		return len(peers[1].updates()) > 0
	}, time.Second, 5*time.Millisecond)

	first := peers[1].updates()[0]
	assert.True(t, first.TimedOut)
	assert.Equal(t, "alice", first.PassedBy)
	assert.Equal(t, "bob", first.Turn)

	// Both seats time out in turn and the match ends blocked.
	require.Eventually(t, func() bool { return !l.Started() }, time.Second, 5*time.Millisecond)
	over := peers[0].gameOver()
	require.NotNil(t, over)
	assert.True(t, over.Blocked)
}

func TestMoveRearmsTurnTimer(t *testing.T) {
	d := newTestDirectory(t, Options{TurnTimeout: 100 * time.Millisecond})
	l, peers := setupTestLobby(t, d, 2)
	startTestLobby(t, l, peers)

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, l.Move(peers[0], passMove(l.ID)))
	time.Sleep(60 * time.Millisecond)

	// The first timer was superseded; bob still has the turn.
	ups := peers[0].updates()
	require.Len(t, ups, 1)
	assert.False(t, ups[0].TimedOut)
	assert.Equal(t, 1, currentTurn(l))
}

func TestRefusingPeerIsDropped(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 2)
	peers[1].limit = len(peers[1].all())

	require.NoError(t, l.Start(peers[0]))

	assert.NotNil(t, peers[0].last().GameStart)
	peers[1].mu.Lock()
	assert.Equal(t, "outbound queue full", peers[1].dropped)
	peers[1].mu.Unlock()
}

func TestStatusReportsPrivateView(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 2)

	require.NoError(t, l.Status(peers[1]))
	st := peers[1].last().Status
	require.NotNil(t, st)
	assert.False(t, st.Started)
	assert.Empty(t, st.YourHand)

	startTestLobby(t, l, peers)
	rigMatch(l, []domino.Tile{tile(2, 3)},
		domino.Hand{tile(0, 1)},
		domino.Hand{tile(3, 5), tile(6, 6)},
	)
	require.NoError(t, l.Status(peers[1]))
	st = peers[1].last().Status
	assert.True(t, st.Started)
	assert.Equal(t, []domino.Tile{tile(3, 5), tile(6, 6)}, st.YourHand)
	assert.Equal(t, []domino.Tile{tile(2, 3)}, st.Chain)
	assert.Equal(t, "alice", st.Turn)
	assert.Equal(t, 4, st.Boneyard)
	assert.Equal(t, []protocol.HandSize{
		{Seat: 0, Username: "alice", Tiles: 1},
		{Seat: 1, Username: "bob", Tiles: 2},
	}, st.HandSizes)
	assert.Empty(t, peers[0].all())
}

func TestJournalRecordsMatchActions(t *testing.T) {
	j := &mockJournal{}
	j.On("Record", mock.Anything).Return()

	d := NewDirectory(Options{MaxLobbies: 1, MaxPlayersPerLobby: 2}, j, quietLogger())
	alice, bob := newMockPeer("alice"), newMockPeer("bob")
	l, err := d.Create("alice", 0, domino.Easy)
	require.NoError(t, err)
	require.NoError(t, l.Join(alice))
	require.NoError(t, l.Join(bob))
	require.NoError(t, l.Start(alice))
	require.NoError(t, l.Move(alice, passMove(l.ID)))
	require.NoError(t, l.Leave(bob))

	var types []string
	for i, call := range j.Calls {
		rec := call.Arguments.Get(0).(models.ActionRecord)
		assert.Equal(t, i+1, rec.ActionIndex)
		assert.Equal(t, l.ID, rec.LobbyID)
		types = append(types, rec.ActionType)
	}
	assert.Equal(t, []string{
		models.ActionMatchStart,
		models.ActionPass,
		models.ActionForfeit,
		models.ActionMatchEnd,
	}, types)
	j.AssertNumberOfCalls(t, "Record", 4)
}

func TestFullTableDealsOneTileEach(t *testing.T) {
	d := newTestDirectory(t, Options{MaxPlayersPerLobby: domino.MaxSeats})
	l, err := d.Create("p0", domino.MaxSeats, "")
	require.NoError(t, err)
	peers := make([]*mockPeer, domino.MaxSeats)
	for i := range peers {
		peers[i] = newMockPeer(fmt.Sprintf("p%d", i))
		require.NoError(t, l.Join(peers[i]))
	}

	require.NoError(t, l.Start(peers[0]))
	for _, p := range peers {
		start := p.last().GameStart
		require.NotNil(t, start)
		assert.Len(t, start.YourHand, 1)
	}
	assert.Equal(t, domino.SetSize, tileCount(l))
}

func TestStartRefusesTableTooLargeToDeal(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, err := d.Create("p0", 0, "")
	require.NoError(t, err)
	l.Capacity = domino.MaxSeats + 1
	peers := make([]*mockPeer, domino.MaxSeats+1)
	for i := range peers {
		peers[i] = newMockPeer(fmt.Sprintf("p%d", i))
		require.NoError(t, l.Join(peers[i]))
	}

	err = l.Start(peers[0])
	assert.ErrorIs(t, err, models.ErrTooManySeats)
	assert.Equal(t, models.KindCapacity, models.KindOf(err))
	assert.False(t, l.Started())
}

func TestGameOverIndexesByRosterAfterLeave(t *testing.T) {
	d := newTestDirectory(t, Options{})
	l, peers := setupTestLobby(t, d, 3)
	startTestLobby(t, l, peers)
	rigMatch(l, []domino.Tile{tile(6, 6)},
		domino.Hand{tile(3, 3)},
		domino.Hand{tile(6, 1)},
		domino.Hand{tile(2, 2)},
	)

	require.NoError(t, l.Leave(peers[0]))
	upd := peers[1].updates()
	require.NotEmpty(t, upd)
	assert.Equal(t, "bob", upd[len(upd)-1].Turn)
	assert.Equal(t, 0, upd[len(upd)-1].TurnSeat, "turn seat indexes the current seat list")

	require.NoError(t, l.Move(peers[1], placeMove(l.ID, tile(6, 1), domino.Right)))
	over := peers[2].gameOver()
	require.NotNil(t, over)
	assert.Equal(t, "bob", over.Winner)
	assert.Equal(t, 1, over.WinnerRosterIndex)
	require.Len(t, over.Hands, 3)
	assert.Equal(t, "alice", over.Hands[0].Username)
	assert.Equal(t, 0, over.Hands[0].RosterIndex)
	assert.True(t, over.Hands[0].Forfeited)
	assert.Equal(t, 2, over.Hands[2].RosterIndex)
}
