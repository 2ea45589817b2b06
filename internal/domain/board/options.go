package board

// Option applies a configuration option to the TreapBoard.
type Option func(*TreapBoard)

// WithSeed mixes seed into node priorities. Boards with different seeds
// hold the same teams in differently shaped trees.
func WithSeed(seed uint64) Option {
	return func(b *TreapBoard) {
		b.seed = seed
	}
}
