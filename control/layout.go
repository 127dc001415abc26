package control

// The solver takes all state and actuator variables in one flat vector:
// six contiguous state blocks of length N, then the steering block and the
// acceleration block of length N-1 each. Every index used by the cost and
// constraint code is derived from these block starts, so the layout is
// computed once per controller and never changes mid-solve.
type layout struct {
	n int

	xStart     int
	yStart     int
	psiStart   int
	vStart     int
	cteStart   int
	epsiStart  int
	deltaStart int
	aStart     int

	numVars        int
	numConstraints int
}

func newLayout(n int) layout {
	l := layout{n: n}
	l.xStart = 0
	l.yStart = l.xStart + n
	l.psiStart = l.yStart + n
	l.vStart = l.psiStart + n
	l.cteStart = l.vStart + n
	l.epsiStart = l.cteStart + n
	l.deltaStart = l.epsiStart + n
	l.aStart = l.deltaStart + n - 1
	l.numVars = n*6 + (n-1)*2
	l.numConstraints = n * 6
	return l
}

// stateStarts lists the six state block offsets in state order
// (x, y, psi, v, cte, epsi).
func (l layout) stateStarts() [6]int {
	return [6]int{l.xStart, l.yStart, l.psiStart, l.vStart, l.cteStart, l.epsiStart}
}
