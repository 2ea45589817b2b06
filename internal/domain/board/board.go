package board

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/gridpick/internal/domain/model"
)

// Treap-based, bounded Board implementation.
//
// Ordering is model.Precedes: score DESC, then team key ASC.
// The BST comparator treats "ranks earlier" as less, so in-order traversal
// produces the board from best to worst and the minimum is the rightmost node.
// Priorities are a hash of the team key, which keeps the tree balanced in
// expectation without a random source.

// treap node
type node struct {
	team  model.Team
	key   string
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, nn *node) *node {
	if n == nil {
		return nn
	}
	if model.Precedes(nn.team.Score, nn.key, n.team.Score, n.key) {
		n.left = insert(n.left, nn)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, nn)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// deleteLast removes the rightmost (lowest ranked) node.
func deleteLast(n *node) (*node, *node) {
	if n.right == nil {
		return n.left, n
	}
	var removed *node
	n.right, removed = deleteLast(n.right)
	fix(n)
	return n, removed
}

func first(n *node) *node {
	for n != nil && n.left != nil {
		n = n.left
	}
	return n
}

func last(n *node) *node {
	for n != nil && n.right != nil {
		n = n.right
	}
	return n
}

// collectTopN appends up to limit teams in rank order (highest first).
func collectTopN(n *node, limit int, out *[]model.Team) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.team)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapBoard is a Board safe for concurrent use.
type TreapBoard struct {
	mu        sync.RWMutex
	root      *node
	keys      map[string]struct{}
	capacity  int
	seed      uint64
	evictions int64
}

var _ Board = (*TreapBoard)(nil)

// NewTreapBoard constructs a board holding at most capacity teams.
func NewTreapBoard(capacity int, opts ...Option) (*TreapBoard, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	b := &TreapBoard{
		keys:     make(map[string]struct{}, capacity+1),
		capacity: capacity,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Offer implements Board.Offer in O(log K) expected time.
// A team whose key is already on the board is ignored.
func (b *TreapBoard) Offer(team model.Team) bool {
	key := team.Key()

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, dup := b.keys[key]; dup {
		return false
	}
	if nsize(b.root) >= b.capacity {
		low := last(b.root)
		if !model.Precedes(team.Score, key, low.team.Score, low.key) {
			return false
		}
	}

	b.keys[key] = struct{}{}
	b.root = insert(b.root, &node{team: team, key: key, prio: xxhash.Sum64String(key) ^ b.seed, size: 1})

	if nsize(b.root) > b.capacity {
		var removed *node
		b.root, removed = deleteLast(b.root)
		delete(b.keys, removed.key)
		b.evictions++
		if removed.key == key {
			return false
		}
	}
	return true
}

// Admits implements Board.Admits. A full board still admits a team tying
// the current minimum because the key decides the tie.
func (b *TreapBoard) Admits(score int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if nsize(b.root) < b.capacity {
		return true
	}
	return score >= last(b.root).team.Score
}

// Best returns the highest ranked team.
func (b *TreapBoard) Best() (model.Team, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n := first(b.root); n != nil {
		return n.team, true
	}
	return model.Team{}, false
}

// Min returns the lowest ranked team.
func (b *TreapBoard) Min() (model.Team, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n := last(b.root); n != nil {
		return n.team, true
	}
	return model.Team{}, false
}

// TopN returns the top N entries with positions and dense ranks.
func (b *TreapBoard) TopN(n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	b.mu.RLock()
	teams := make([]model.Team, 0, min(n, nsize(b.root)))
	collectTopN(b.root, n, &teams)
	b.mu.RUnlock()

	return RankTeams(teams), nil
}

// Teams returns every team on the board, highest first.
func (b *TreapBoard) Teams() []model.Team {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Team, 0, nsize(b.root))
	collectTopN(b.root, nsize(b.root), &out)
	return out
}

// Merge offers every team of src and returns how many were kept.
func (b *TreapBoard) Merge(src Board) int {
	kept := 0
	for _, t := range src.Teams() {
		if b.Offer(t) {
			kept++
		}
	}
	return kept
}

// Len returns the number of teams on the board.
func (b *TreapBoard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return nsize(b.root)
}

// Cap returns the board capacity.
func (b *TreapBoard) Cap() int { return b.capacity }

// Evictions returns how many teams were pushed off the board.
func (b *TreapBoard) Evictions() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.evictions
}

// RankTeams turns an ordered team slice into board entries.
func RankTeams(teams []model.Team) []Entry {
	out := make([]Entry, len(teams))
	for i, t := range teams {
		out[i] = Entry{Position: i + 1, Team: t}
	}
	assignRanksWithTies(out)
	return out
}

// assignRanksWithTies assigns dense ranks: teams with the same score share
// a rank and the next score takes the following rank.
func assignRanksWithTies(entries []Entry) {
	if len(entries) == 0 {
		return
	}

	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank

		sameScoreCount := 1
		for j := i + 1; j < len(entries) && entries[j].Team.Score == entries[i].Team.Score; j++ {
			entries[j].Rank = currentRank
			sameScoreCount++
		}

		currentRank++
		i += sameScoreCount - 1
	}
}
