package sheet

// Trackers behave as a single fill level rendered as discrete cells, not as
// independent toggles. Clicking cell i fills every cell up to and including
// i; clicking the cell that is already the top of the fill lowers the level
// by one, so a repeated click on the same cell undoes itself.

// FillLevel returns the number of active cells counted from the left. Gaps
// are ignored: the level is the index after the last active cell.
func FillLevel(cells []Cell) int {
	level := 0
	for i, c := range cells {
		if c.Active {
			level = i + 1
		}
	}
	return level
}

// SetFillLevel returns a copy of cells with exactly the first level cells
// active. Out-of-range levels are clamped.
func SetFillLevel(cells []Cell, level int) []Cell {
	if level < 0 {
		level = 0
	}
	if level > len(cells) {
		level = len(cells)
	}
	out := make([]Cell, len(cells))
	for i := range out {
		out[i].Active = i < level
	}
	return out
}

// ClickCell applies the fill-to-position interaction for a click on index i
// and returns the resulting cells. Clicking the current top of the fill
// toggles it back down; any other click sets the fill level to i+1.
func ClickCell(cells []Cell, i int) []Cell {
	if i < 0 || i >= len(cells) {
		return SetFillLevel(cells, FillLevel(cells))
	}
	if FillLevel(cells) == i+1 {
		return SetFillLevel(cells, i)
	}
	return SetFillLevel(cells, i+1)
}

// Click mutates the tracker with the fill-to-position rule and keeps the
// Current counter in sync.
func (t *Tracker) Click(i int) {
	t.Cells = ClickCell(t.Cells, i)
	t.Current = FillLevel(t.Cells)
}

// Set clamps n to [0, Max] and stores it as the pool's current value.
func (p *Pool) Set(n int) {
	if n < 0 {
		n = 0
	}
	if n > p.Max {
		n = p.Max
	}
	p.Current = n
}

// Click applies the fill-to-position rule to a counter-only tracker (Hope
// renders as cells but stores no per-cell state). Clicking the current top
// lowers the level by one; any other position sets the level to i+1.
func (p *Pool) Click(i int) {
	if i < 0 || i >= p.Max {
		return
	}
	if p.Current == i+1 {
		p.Current = i
		return
	}
	p.Current = i + 1
}

// Resize grows or shrinks the tracker to n cells, preserving the fill level
// where possible.
func (t *Tracker) Resize(n int) {
	if n < 0 {
		n = 0
	}
	level := FillLevel(t.Cells)
	if level > n {
		level = n
	}
	t.Cells = SetFillLevel(make([]Cell, n), level)
	t.Max = n
	t.Current = level
}
