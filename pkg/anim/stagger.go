package anim

// StaggerDirection selects which items of a group start first.
type StaggerDirection uint8

const (
	// StaggerForward starts item 0 first.
	StaggerForward StaggerDirection = iota
	// StaggerReverse starts the last item first.
	StaggerReverse
	// StaggerFromCenter starts the middle items first.
	StaggerFromCenter
	// StaggerFromEdges starts the outermost items first.
	StaggerFromEdges
)

// String returns the direction name.
func (d StaggerDirection) String() string {
	switch d {
	case StaggerForward:
		return "forward"
	case StaggerReverse:
		return "reverse"
	case StaggerFromCenter:
		return "from-center"
	case StaggerFromEdges:
		return "from-edges"
	}
	return "unknown"
}

// Stagger spreads the start offsets of a group of animations.
type Stagger struct {
	// DelayMs is the gap between consecutive starts.
	DelayMs int32

	Direction StaggerDirection

	// Limit caps the number of delay steps. Items past it share the last
	// offset. Zero means no cap.
	Limit int

	// MaxSpreadMs caps the offset of the last item. When the group would
	// spread wider the delay shrinks to fit. Zero means no cap.
	MaxSpreadMs int32
}

// Offset returns the start offset of item index in a group of total.
func (s Stagger) Offset(index, total int) int32 {
	if total <= 0 || index < 0 || index >= total {
		return 0
	}
	rank := s.rank(index, total)
	if s.MaxSpreadMs > 0 {
		steps := s.steps(total)
		if steps > 0 && int64(steps)*int64(s.DelayMs) > int64(s.MaxSpreadMs) {
			return int32(int64(rank) * int64(s.MaxSpreadMs) / int64(steps))
		}
	}
	return int32(rank) * s.DelayMs
}

// Span returns the offset of the last item to start.
func (s Stagger) Span(total int) int32 {
	if total <= 0 {
		return 0
	}
	steps := s.steps(total)
	if s.MaxSpreadMs > 0 && int64(steps)*int64(s.DelayMs) > int64(s.MaxSpreadMs) {
		return s.MaxSpreadMs
	}
	return int32(steps) * s.DelayMs
}

func (s Stagger) rank(index, total int) int {
	var r int
	switch s.Direction {
	case StaggerReverse:
		r = total - 1 - index
	case StaggerFromCenter:
		r = centerDistance(index, total)
	case StaggerFromEdges:
		r = centerDistance(0, total) - centerDistance(index, total)
	default:
		r = index
	}
	if s.Limit > 0 && r > s.Limit {
		r = s.Limit
	}
	return r
}

// steps is the largest rank in a group of total.
func (s Stagger) steps(total int) int {
	var r int
	switch s.Direction {
	case StaggerFromCenter, StaggerFromEdges:
		r = centerDistance(0, total)
	default:
		r = total - 1
	}
	if s.Limit > 0 && r > s.Limit {
		r = s.Limit
	}
	return r
}

// centerDistance is the number of steps from index to the nearest middle
// item. An even group has two middle items.
func centerDistance(index, total int) int {
	lo := (total - 1) / 2
	hi := total / 2
	switch {
	case index < lo:
		return lo - index
	case index > hi:
		return index - hi
	}
	return 0
}
