package pricing

import (
	"fmt"
	"time"

	"marquee/internal/calendar"
	"marquee/types"
)

// contextStack is the designated holder for active pricing contexts. One
// ambient stack exists per process; it is owned by a single logical
// execution flow and is not safe for concurrent mutation.
//
// Frames are either scoped (pushed by Do, popped on exit) or ambient (set
// via SetCurrent, removed via Pop). The innermost frame is last.
type contextStack struct {
	frames []*frame
}

type frame struct {
	ctx    *PricingContext
	scoped bool
}

func newContextStack() *contextStack {
	return &contextStack{}
}

// ambient is the process-wide stack every PricingContext enters by default.
var ambient = newContextStack()

func (s *contextStack) depth() int {
	return len(s.frames)
}

func (s *contextStack) push(pc *PricingContext, scoped bool) {
	s.frames = append(s.frames, &frame{ctx: pc, scoped: scoped})
}

func (s *contextStack) pop() (*PricingContext, error) {
	if len(s.frames) == 0 {
		return nil, fmt.Errorf("%w: pop on empty context stack", ErrInvalidConfiguration)
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top.ctx, nil
}

func (s *contextStack) hasScoped() bool {
	for _, f := range s.frames {
		if f.scoped {
			return true
		}
	}
	return false
}

func (s *contextStack) innermost() *PricingContext {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1].ctx
}

// enclosing returns the frames that enclose pc, nearest first. If pc is not
// on the stack, every frame encloses it.
func (s *contextStack) enclosing(pc *PricingContext) []*PricingContext {
	idx := len(s.frames)
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].ctx == pc {
			idx = i
			break
		}
	}
	out := make([]*PricingContext, 0, idx)
	for i := idx - 1; i >= 0; i-- {
		out = append(out, s.frames[i].ctx)
	}
	return out
}

// Depth reports how many frames are active on the ambient stack.
func Depth() int {
	return ambient.depth()
}

// Current returns the innermost active context, or an empty default context
// when the stack is empty.
func Current() *PricingContext {
	if pc := ambient.innermost(); pc != nil {
		return pc
	}
	return &PricingContext{}
}

// SetCurrent installs pc as the ambient current context, changing default
// resolution globally until superseded. It is an error while any scoped
// frame is active.
func SetCurrent(pc *PricingContext) error {
	if ambient.hasScoped() {
		return fmt.Errorf("%w: cannot replace current context inside an active scope", ErrInvalidConfiguration)
	}
	if ambient.depth() > 0 {
		ambient.frames[ambient.depth()-1] = &frame{ctx: pc}
		return nil
	}
	ambient.push(pc, false)
	return nil
}

// Pop removes the innermost frame, ambient or scoped.
func Pop() error {
	_, err := ambient.pop()
	return err
}

// HasPrior reports whether the innermost frame has an enclosing frame.
func HasPrior() bool {
	return ambient.depth() > 1
}

// Prior returns the next-outer frame, or nil if there is none.
func Prior() *PricingContext {
	if !HasPrior() {
		return nil
	}
	return ambient.frames[ambient.depth()-2].ctx
}

// resolution walks pc plus its enclosing frames, nearest first, and falls
// back to the hard defaults. pricing_date keeps its documented special
// case: it is never defaulted to today while any frame on the walk carries
// one, it is inherited.

func (s *contextStack) resolveLocation(pc *PricingContext) types.PricingLocation {
	if loc := pc.locationValue(); loc != "" {
		return loc
	}
	for _, outer := range s.enclosing(pc) {
		if loc := outer.locationValue(); loc != "" {
			return loc
		}
	}
	return types.DefaultLocation
}

func (s *contextStack) resolvePricingDate(pc *PricingContext, cal calendar.Calendar, now time.Time) time.Time {
	if pc.pricingDate != nil {
		return *pc.pricingDate
	}
	for _, outer := range s.enclosing(pc) {
		if outer.pricingDate != nil {
			return *outer.pricingDate
		}
	}
	loc := s.resolveLocation(pc)
	return calendar.RollPreceding(calendar.Date(now.In(loc.Timezone())), cal)
}

func (s *contextStack) resolveBool(pc *PricingContext, get func(*PricingContext) *bool) bool {
	if v := get(pc); v != nil {
		return *v
	}
	for _, outer := range s.enclosing(pc) {
		if v := get(outer); v != nil {
			return *v
		}
	}
	return false
}

func (s *contextStack) resolveInt(pc *PricingContext, get func(*PricingContext) *int, def int) int {
	if v := get(pc); v != nil {
		return *v
	}
	for _, outer := range s.enclosing(pc) {
		if v := get(outer); v != nil {
			return *v
		}
	}
	return def
}

func (s *contextStack) resolveString(pc *PricingContext, get func(*PricingContext) string) string {
	if v := get(pc); v != "" {
		return v
	}
	for _, outer := range s.enclosing(pc) {
		if v := get(outer); v != "" {
			return v
		}
	}
	return ""
}

func (s *contextStack) resolveValuer(pc *PricingContext) Valuer {
	if pc.valuer != nil {
		return pc.valuer
	}
	for _, outer := range s.enclosing(pc) {
		if outer.valuer != nil {
			return outer.valuer
		}
	}
	return nil
}

func (s *contextStack) resolveTimeout(pc *PricingContext) time.Duration {
	if pc.batchTimeout != nil {
		return *pc.batchTimeout
	}
	for _, outer := range s.enclosing(pc) {
		if outer.batchTimeout != nil {
			return *outer.batchTimeout
		}
	}
	return 0
}

// checkLocations fails when explicitly supplied locations conflict across
// pc and its active enclosing frames. Mismatches are fatal at calculation
// time, never silently resolved.
func (s *contextStack) checkLocations(pc *PricingContext) error {
	seen := pc.constructedLocation()
	for _, outer := range s.enclosing(pc) {
		loc := outer.constructedLocation()
		if loc == "" {
			continue
		}
		if seen == "" {
			seen = loc
			continue
		}
		if loc != seen {
			return fmt.Errorf("%w: market data location %s conflicts with active context location %s",
				ErrInvalidConfiguration, seen, loc)
		}
	}
	return nil
}
