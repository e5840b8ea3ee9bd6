package draughts

// delta - one diagonal step.
type delta struct {
	row, col int
}

var diagonals = [4]delta{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}

func step(sq Square, d delta, n int) Square {
	return Square{Row: sq.Row + d.row*n, Col: sq.Col + d.col*n}
}

// LegalMoves - computes every legal move for the color on the given
// position. Capture moves have absolute priority: when any capture chain
// exists, only the chains of maximal length are legal and every simple
// move is excluded. Ties between maximal chains are all returned; the
// caller chooses among them. Pure function, the board is never mutated.
func LegalMoves(board Board, color Color) []Move {
	captures := captureMoves(board, color)
	if len(captures) > 0 {
		return longestOnly(captures)
	}

	return simpleMoves(board, color)
}

// HasMoves - reports whether the color has at least one legal move.
func HasMoves(board Board, color Color) bool {
	return len(LegalMoves(board, color)) > 0
}

// chain - one finished capture sequence found by the search.
type chain struct {
	to       Square
	path     []Square
	captures []Square
}

func captureMoves(board Board, color Color) []Move {
	var moves []Move

	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			piece := board[row][col]
			if piece.Color != color {
				continue
			}

			from := Square{Row: row, Col: col}
			for _, ch := range captureChains(board, from, piece, map[Square]bool{}) {
				moves = append(moves, Move{
					From:     from,
					To:       ch.to,
					Path:     ch.path,
					Captures: ch.captures,
				})
			}
		}
	}

	return moves
}

// captureChains - depth-first search over the capture chains available to
// one piece. Each recursion level plays a single jump on a copy of the
// board: the captured piece is removed, the mover is relocated, and the
// captured square is added to the dead set. Dead squares block king rays
// and can never be landed on or captured again within the chain, so a
// chain never counts the same enemy twice. A branch yields a finished
// chain only when no further jump exists from its landing square.
func captureChains(board Board, from Square, piece Piece, dead map[Square]bool) []chain {
	if piece.IsKing() {
		return kingCaptureChains(board, from, piece, dead)
	}

	return manCaptureChains(board, from, piece, dead)
}

// manCaptureChains - a man jumps an adjacent enemy into the empty square
// immediately beyond, in any of the four diagonal directions. A man never
// flies mid-chain: promotion applies only once the whole move is over.
func manCaptureChains(board Board, from Square, piece Piece, dead map[Square]bool) []chain {
	var chains []chain

	for _, dir := range diagonals {
		mid := step(from, dir, 1)
		land := step(from, dir, 2)

		if !land.InBounds() {
			continue
		}
		if dead[mid] || board.At(mid).Color != Opponent(piece.Color) {
			continue
		}
		if dead[land] || !board.At(land).IsEmpty() {
			continue
		}

		next := board
		next[from.Row][from.Col] = Piece{}
		next[mid.Row][mid.Col] = Piece{}
		next[land.Row][land.Col] = piece

		dead[mid] = true
		tails := manCaptureChains(next, land, piece, dead)
		delete(dead, mid)

		chains = appendChains(chains, mid, land, tails)
	}

	return chains
}

// kingCaptureChains - a king scans outward along each diagonal through
// empty squares; the first obstruction must be a live enemy with at least
// one empty square behind it, and every empty square of that continuation
// is a separate landing choice. The scan stops dead on a friendly piece,
// a dead square, or the board edge.
func kingCaptureChains(board Board, from Square, piece Piece, dead map[Square]bool) []chain {
	var chains []chain

	for _, dir := range diagonals {
		target := step(from, dir, 1)
		for target.InBounds() && board.At(target).IsEmpty() && !dead[target] {
			target = step(target, dir, 1)
		}

		if !target.InBounds() || dead[target] || board.At(target).Color != Opponent(piece.Color) {
			continue
		}

		land := step(target, dir, 1)
		for land.InBounds() && board.At(land).IsEmpty() && !dead[land] {
			next := board
			next[from.Row][from.Col] = Piece{}
			next[target.Row][target.Col] = Piece{}
			next[land.Row][land.Col] = piece

			dead[target] = true
			tails := kingCaptureChains(next, land, piece, dead)
			delete(dead, target)

			chains = appendChains(chains, target, land, tails)

			land = step(land, dir, 1)
		}
	}

	return chains
}

// appendChains - collects the results of one jump: either the jump itself
// as a terminal chain, or the jump prefixed onto every continuation found
// from its landing square.
func appendChains(chains []chain, captured, landing Square, tails []chain) []chain {
	if len(tails) == 0 {
		return append(chains, chain{to: landing, captures: []Square{captured}})
	}

	for _, tail := range tails {
		path := make([]Square, 0, len(tail.path)+1)
		path = append(path, landing)
		path = append(path, tail.path...)

		captures := make([]Square, 0, len(tail.captures)+1)
		captures = append(captures, captured)
		captures = append(captures, tail.captures...)

		chains = append(chains, chain{to: tail.to, path: path, captures: captures})
	}

	return chains
}

// longestOnly - the majority-capture law: keep only the chains whose
// capture count equals the maximum across all candidates.
func longestOnly(moves []Move) []Move {
	longest := 0
	for _, move := range moves {
		if len(move.Captures) > longest {
			longest = len(move.Captures)
		}
	}

	legal := make([]Move, 0, len(moves))
	for _, move := range moves {
		if len(move.Captures) == longest {
			legal = append(legal, move)
		}
	}

	return legal
}

// simpleMoves - non-capturing moves, computed only when the color has no
// capture available. Men slide one square diagonally forward; kings slide
// any distance along an open diagonal in all four directions.
func simpleMoves(board Board, color Color) []Move {
	var moves []Move

	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			piece := board[row][col]
			if piece.Color != color {
				continue
			}

			from := Square{Row: row, Col: col}

			if piece.IsKing() {
				for _, dir := range diagonals {
					to := step(from, dir, 1)
					for to.InBounds() && board.At(to).IsEmpty() {
						moves = append(moves, Move{From: from, To: to})
						to = step(to, dir, 1)
					}
				}
				continue
			}

			for _, dc := range [2]int{-1, 1} {
				to := Square{Row: row + forwardDir(color), Col: col + dc}
				if to.InBounds() && board.At(to).IsEmpty() {
					moves = append(moves, Move{From: from, To: to})
				}
			}
		}
	}

	return moves
}

// Apply - plays a generated move and returns the resulting position. The
// origin is vacated, every captured square is cleared, and the piece
// lands on the destination, promoting to king when a man's final landing
// square is the opponent's back rank.
func Apply(board Board, move Move) Board {
	piece := board.At(move.From)

	board[move.From.Row][move.From.Col] = Piece{}
	for _, captured := range move.Captures {
		board[captured.Row][captured.Col] = Piece{}
	}

	if !piece.IsKing() && move.To.Row == PromotionRow(piece.Color) {
		piece.Rank = RankKing
	}
	board[move.To.Row][move.To.Col] = piece

	return board
}

// FindMove - matches a submitted move against the generated legal set.
// Endpoints decide the match; the submitted path is consulted only to
// pick between equal-length chains sharing both endpoints. The returned
// move is always the generated one, never the submission.
func FindMove(legal []Move, submitted Move) (Move, bool) {
	var candidates []Move
	for _, move := range legal {
		if move.SameEndpoints(submitted) {
			candidates = append(candidates, move)
		}
	}

	if len(candidates) == 0 {
		return Move{}, false
	}

	for _, move := range candidates {
		if move.SamePath(submitted) {
			return move, true
		}
	}

	return candidates[0], true
}
