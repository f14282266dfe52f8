package clientcore

import "github.com/cubesim/cubes/internal/entity"

// StoreLocalInput records the locally sampled input for tick, to be sent
// (and redundantly resent) in upcoming InputPackets.
func (s *Session) StoreLocalInput(tick uint64, in entity.Input) {
	// Ticks skipped over by a forward jump must not keep inputs stored
	// InputHistoryWindow ticks earlier at the same ring index.
	for t := s.nextTick; t < tick && t-s.nextTick < InputHistoryWindow; t++ {
		s.inputValid[t%InputHistoryWindow] = false
	}
	idx := tick % InputHistoryWindow
	s.inputHistory[idx] = in
	s.inputValid[idx] = true
	if tick >= s.nextTick {
		s.nextTick = tick + 1
	}
}

// BuildInputRun returns up to maxLen ticks of input ending at the most
// recent tick stored, oldest first, along with the tick the first entry
// applies to. Older entries are included for redundancy against dropped
// packets; any tick never recorded (a gap) yields a zero Input.
func (s *Session) BuildInputRun(maxLen int) (startTick uint64, inputs []entity.Input) {
	if s.nextTick == 0 {
		return 0, nil
	}
	last := s.nextTick - 1
	n := uint64(maxLen)
	if n > last+1 {
		n = last + 1
	}
	start := last - n + 1
	out := make([]entity.Input, n)
	for i := uint64(0); i < n; i++ {
		tick := start + i
		idx := tick % InputHistoryWindow
		if s.inputValid[idx] {
			out[i] = s.inputHistory[idx]
		}
	}
	return start, out
}
