package engine

// Effects carries the side effects of one command back to the shell:
// seconds of sleep requested by SLEEP formulas, and the keys of every
// cell the topological pass re-evaluated (the assigned cell excluded).
// The shell consumes the sleep budget once per command.
type Effects struct {
	SleepSeconds int64
	Recomputed   []int32
}

func (e *Effects) sleep(seconds int32) {
	if seconds > 0 {
		e.SleepSeconds += int64(seconds)
	}
}
