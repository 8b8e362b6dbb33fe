package live

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickClient
)

// Policy decides what to do with a client whose send queue is full.
// drops is the number of consecutive messages it has missed.
type Policy interface {
	OnBackpressure(id ClientID, drops int) BackpressureAction
}

// DropLimitPolicy kicks a client after MaxDrops consecutive drops.
// A zero MaxDrops never kicks.
type DropLimitPolicy struct {
	MaxDrops int
}

func (p DropLimitPolicy) OnBackpressure(_ ClientID, drops int) BackpressureAction {
	if p.MaxDrops > 0 && drops >= p.MaxDrops {
		return KickClient
	}
	return NoAction
}
