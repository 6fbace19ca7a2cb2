// Package pricing implements the scoped pricing-context stack: nested,
// inheritable valuation configuration with a globally addressable current
// context, plus the fan-out machinery for historical pricing.
package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"marquee/internal/calendar"
	"marquee/types"
)

const defaultMaxConcurrent = 1000

// Valuer is the valuation backend. Implementations may price remotely or
// locally; the context stack only decides when and with what configuration
// they are called.
type Valuer interface {
	Price(ctx context.Context, instrument types.Instrument, measure types.RiskMeasure, req ValuationRequest) (decimal.Decimal, error)
}

// ValuationRequest carries the resolved, effective context properties for a
// single valuation call.
type ValuationRequest struct {
	PricingDate time.Time
	Market      CloseMarket
	Location    types.PricingLocation
	CSATerm     string
	UseCache    bool
	VisibleToGS bool
	Batch       bool
	Priority    int
}

// PricingContext is one frame of the context stack. Fields left unset at
// construction resolve against enclosing frames on read inside a scope,
// falling back to hard defaults. Entering stamps the resolved values onto
// the frame; exiting restores exactly the constructed state.
type PricingContext struct {
	pricingDate        *time.Time
	market             *CloseMarket
	marketDataLocation types.PricingLocation
	isAsync            *bool
	isBatch            *bool
	useCache           *bool
	visibleToGS        *bool
	csaTerm            string
	requestPriority    *int
	maxConcurrent      *int
	batchTimeout       *time.Duration
	rollForward        bool

	cal    calendar.Calendar
	valuer Valuer
	nowFn  func() time.Time

	// asyncPool bounds concurrent backend requests for async calculations.
	asyncMu   sync.Mutex
	asyncPool *pool.Pool

	// explicitLoc records that a location (directly or via the market) was
	// supplied at construction; the cross-frame conflict check only looks
	// at constructed locations, never stamped ones.
	explicitLoc bool
	stamps      stamps
}

type stamps struct {
	pricingDate   bool
	market        bool
	location      bool
	isAsync       bool
	isBatch       bool
	useCache      bool
	visibleToGS   bool
	csaTerm       bool
	maxConcurrent bool
}

type Option func(*PricingContext)

func WithPricingDate(d time.Time) Option {
	return func(pc *PricingContext) {
		date := calendar.Date(d)
		pc.pricingDate = &date
	}
}

func WithMarket(m CloseMarket) Option {
	return func(pc *PricingContext) { pc.market = &m }
}

func WithMarketDataLocation(l types.PricingLocation) Option {
	return func(pc *PricingContext) { pc.marketDataLocation = l }
}

func WithAsync(v bool) Option {
	return func(pc *PricingContext) { pc.isAsync = &v }
}

func WithBatch(v bool) Option {
	return func(pc *PricingContext) { pc.isBatch = &v }
}

// WithBatchTimeout bounds a batch calculation; exceeding it fails that
// calculation, it is never retried.
func WithBatchTimeout(d time.Duration) Option {
	return func(pc *PricingContext) { pc.batchTimeout = &d }
}

func WithUseCache(v bool) Option {
	return func(pc *PricingContext) { pc.useCache = &v }
}

func WithVisibleToGS(v bool) Option {
	return func(pc *PricingContext) { pc.visibleToGS = &v }
}

func WithCSATerm(term string) Option {
	return func(pc *PricingContext) { pc.csaTerm = term }
}

func WithRequestPriority(p int) Option {
	return func(pc *PricingContext) { pc.requestPriority = &p }
}

func WithMaxConcurrent(n int) Option {
	return func(pc *PricingContext) { pc.maxConcurrent = &n }
}

// WithRollForward tags the context as an explicit forward-roll operation,
// lifting the no-future-pricing-date restriction.
func WithRollForward() Option {
	return func(pc *PricingContext) { pc.rollForward = true }
}

func WithCalendar(cal calendar.Calendar) Option {
	return func(pc *PricingContext) { pc.cal = cal }
}

func WithValuer(v Valuer) Option {
	return func(pc *PricingContext) { pc.valuer = v }
}

// withClock is test seam only.
func withClock(now func() time.Time) Option {
	return func(pc *PricingContext) { pc.nowFn = now }
}

// NewPricingContext validates and builds a context frame. Validation
// failures are fatal to the construction; no partial frame is returned.
func NewPricingContext(opts ...Option) (*PricingContext, error) {
	pc := &PricingContext{}
	for _, opt := range opts {
		opt(pc)
	}

	if pc.market != nil && pc.market.Location != "" && pc.marketDataLocation != "" &&
		pc.market.Location != pc.marketDataLocation {
		return nil, fmt.Errorf("%w: market location %s conflicts with market data location %s",
			ErrInvalidConfiguration, pc.market.Location, pc.marketDataLocation)
	}
	pc.explicitLoc = pc.locationValue() != ""

	// A future pricing date without an explicit market snapshot requires a
	// forward roll. Weekends roll to the next business day before comparing.
	if pc.pricingDate != nil && pc.market == nil && !pc.rollForward {
		loc := pc.marketDataLocation
		if loc == "" {
			loc = types.DefaultLocation
		}
		today := calendar.Date(pc.now().In(loc.Timezone()))
		latest := calendar.RollFollowing(today, pc.calendar())
		if pc.pricingDate.After(latest) {
			return nil, fmt.Errorf("%w: pricing_date %s in the future; use a forward roll",
				ErrInvalidConfiguration, pc.pricingDate.Format("2006-01-02"))
		}
	}
	return pc, nil
}

func (pc *PricingContext) now() time.Time {
	if pc.nowFn != nil {
		return pc.nowFn()
	}
	return time.Now()
}

func (pc *PricingContext) calendar() calendar.Calendar {
	if pc.cal != nil {
		return pc.cal
	}
	return calendar.Weekday{}
}

// locationValue is the location this frame contributes to resolution: the
// explicit one, or the one implied by its market.
func (pc *PricingContext) locationValue() types.PricingLocation {
	if pc.marketDataLocation != "" {
		return pc.marketDataLocation
	}
	if pc.market != nil {
		return pc.market.Location
	}
	return ""
}

func (pc *PricingContext) constructedLocation() types.PricingLocation {
	if !pc.explicitLoc {
		return ""
	}
	return pc.locationValue()
}

// Do runs fn with pc active on the stack. Exactly one frame is pushed on
// entry and popped on every exit path, restoring whatever the frame had
// overridden.
func (pc *PricingContext) Do(fn func() error) error {
	pc.enter()
	defer pc.exit()
	return fn()
}

func (pc *PricingContext) enter() {
	ambient.push(pc, true)
	pc.stamp()
}

func (pc *PricingContext) exit() {
	pc.unstamp()
	_, _ = ambient.pop()
	pc.releasePool()
}

// stamp fills every unset field with its resolved value so reads inside the
// scope see effective values. The stamps record drives restoration.
func (pc *PricingContext) stamp() {
	now := pc.now()
	cal := pc.calendar()

	if pc.marketDataLocation == "" {
		pc.marketDataLocation = ambient.resolveLocation(pc)
		pc.stamps.location = true
	}
	if pc.pricingDate == nil {
		d := ambient.resolvePricingDate(pc, cal, now)
		pc.pricingDate = &d
		pc.stamps.pricingDate = true
	}
	if pc.market == nil {
		// The market is never inherited: an unset market is built from this
		// frame's own resolved date and location.
		m := CloseMarket{
			Date:     closeMarketDate(pc.marketDataLocation, *pc.pricingDate, cal, now),
			Location: pc.marketDataLocation,
		}
		pc.market = &m
		pc.stamps.market = true
	}
	pc.stampBool(&pc.isAsync, &pc.stamps.isAsync, func(c *PricingContext) *bool { return c.isAsync })
	pc.stampBool(&pc.isBatch, &pc.stamps.isBatch, func(c *PricingContext) *bool { return c.isBatch })
	pc.stampBool(&pc.useCache, &pc.stamps.useCache, func(c *PricingContext) *bool { return c.useCache })
	pc.stampBool(&pc.visibleToGS, &pc.stamps.visibleToGS, func(c *PricingContext) *bool { return c.visibleToGS })
	if pc.maxConcurrent == nil {
		n := ambient.resolveInt(pc, func(c *PricingContext) *int { return c.maxConcurrent }, defaultMaxConcurrent)
		pc.maxConcurrent = &n
		pc.stamps.maxConcurrent = true
	}
	if pc.csaTerm == "" {
		pc.csaTerm = ambient.resolveString(pc, func(c *PricingContext) string { return c.csaTerm })
		pc.stamps.csaTerm = true
	}
}

func (pc *PricingContext) stampBool(field **bool, stamped *bool, get func(*PricingContext) *bool) {
	if *field != nil {
		return
	}
	v := ambient.resolveBool(pc, get)
	*field = &v
	*stamped = true
}

func (pc *PricingContext) unstamp() {
	s := pc.stamps
	if s.pricingDate {
		pc.pricingDate = nil
	}
	if s.market {
		pc.market = nil
	}
	if s.location {
		pc.marketDataLocation = ""
	}
	if s.isAsync {
		pc.isAsync = nil
	}
	if s.isBatch {
		pc.isBatch = nil
	}
	if s.useCache {
		pc.useCache = nil
	}
	if s.visibleToGS {
		pc.visibleToGS = nil
	}
	if s.maxConcurrent {
		pc.maxConcurrent = nil
	}
	if s.csaTerm {
		pc.csaTerm = ""
	}
	pc.stamps = stamps{}
}

// Accessors return the frame's value as-is: resolved values inside a scope,
// only constructed ones outside.

func (pc *PricingContext) PricingDate() time.Time {
	if pc.pricingDate == nil {
		return time.Time{}
	}
	return *pc.pricingDate
}

func (pc *PricingContext) Market() CloseMarket {
	if pc.market == nil {
		return CloseMarket{}
	}
	return *pc.market
}

func (pc *PricingContext) MarketDataLocation() types.PricingLocation {
	return pc.marketDataLocation
}

func (pc *PricingContext) IsAsync() bool {
	return pc.isAsync != nil && *pc.isAsync
}

func (pc *PricingContext) IsBatch() bool {
	return pc.isBatch != nil && *pc.isBatch
}

func (pc *PricingContext) UseCache() bool {
	return pc.useCache != nil && *pc.useCache
}

func (pc *PricingContext) VisibleToGS() bool {
	return pc.visibleToGS != nil && *pc.visibleToGS
}

func (pc *PricingContext) CSATerm() string {
	return pc.csaTerm
}

func (pc *PricingContext) RequestPriority() (int, bool) {
	if pc.requestPriority == nil {
		return 0, false
	}
	return *pc.requestPriority, true
}

func (pc *PricingContext) MaxConcurrent() int {
	if pc.maxConcurrent == nil {
		return 0
	}
	return *pc.maxConcurrent
}

// effectiveRequest resolves the full valuation configuration for this frame
// against the active stack, whether or not the frame is entered.
func (pc *PricingContext) effectiveRequest() ValuationRequest {
	now := pc.now()
	cal := pc.calendar()
	loc := ambient.resolveLocation(pc)
	date := ambient.resolvePricingDate(pc, cal, now)

	var market CloseMarket
	if pc.market != nil {
		market = *pc.market
	} else {
		market = CloseMarket{Date: closeMarketDate(loc, date, cal, now), Location: loc}
	}

	priority := 0
	if p, ok := pc.RequestPriority(); ok {
		priority = p
	}
	return ValuationRequest{
		PricingDate: date,
		Market:      market,
		Location:    loc,
		CSATerm:     ambient.resolveString(pc, func(c *PricingContext) string { return c.csaTerm }),
		UseCache:    ambient.resolveBool(pc, func(c *PricingContext) *bool { return c.useCache }),
		VisibleToGS: ambient.resolveBool(pc, func(c *PricingContext) *bool { return c.visibleToGS }),
		Batch:       ambient.resolveBool(pc, func(c *PricingContext) *bool { return c.isBatch }),
		Priority:    priority,
	}
}

// Calc issues one valuation. Under a synchronous context the returned
// future is already resolved; under an async one it resolves when the
// backend call completes and Result is the join point. Backend failures are
// carried by the future, configuration failures are returned here.
func (pc *PricingContext) Calc(instrument types.Instrument, measure types.RiskMeasure) (*PricingFuture, error) {
	if err := ambient.checkLocations(pc); err != nil {
		return nil, err
	}
	valuer := ambient.resolveValuer(pc)
	if valuer == nil {
		return nil, ErrNoValuer
	}

	req := pc.effectiveRequest()
	var timeout time.Duration
	if req.Batch {
		timeout = ambient.resolveTimeout(pc)
	}
	call := func() (decimal.Decimal, error) {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return valuer.Price(ctx, instrument, measure, req)
	}

	if !ambient.resolveBool(pc, func(c *PricingContext) *bool { return c.isAsync }) {
		v, err := call()
		return completedFuture(v, err), nil
	}
	fut := newPricingFuture()
	pc.workerPool().Go(func() {
		fut.complete(call())
	})
	return fut, nil
}

// workerPool lazily builds the bounded pool async calculations run on,
// sized to the effective max_concurrent at first use. Once the bound is
// reached, submitting a further calculation blocks until a slot frees; the
// bound caps concurrent backend requests, not the number of futures.
func (pc *PricingContext) workerPool() *pool.Pool {
	pc.asyncMu.Lock()
	defer pc.asyncMu.Unlock()
	if pc.asyncPool == nil {
		n := ambient.resolveInt(pc, func(c *PricingContext) *int { return c.maxConcurrent }, defaultMaxConcurrent)
		pc.asyncPool = pool.New().WithMaxGoroutines(n)
	}
	return pc.asyncPool
}

// releasePool retires the pool when the scope exits. In-flight calculations
// keep running and their futures resolve as they finish; the workers wind
// down once drained. A later Calc builds a fresh pool.
func (pc *PricingContext) releasePool() {
	pc.asyncMu.Lock()
	p := pc.asyncPool
	pc.asyncPool = nil
	pc.asyncMu.Unlock()
	if p != nil {
		go p.Wait()
	}
}
