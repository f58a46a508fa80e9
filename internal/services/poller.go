package services

import (
	"context"
	"sync/atomic"
	"time"

	"pact-sync-client/internal/config"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Poller drives the background refresh of both stores. Each store has its
// own timer; the challenge timer follows the store's poll interval and
// pauses while the session is unauthenticated. A change of that interval
// re-arms the challenge timer at once.
type Poller struct {
	engine *Engine
	cfg    config.PollConfig

	partnerKick    chan struct{}
	challengeKick  chan struct{}
	challengeRearm chan struct{}
	armed          atomic.Int64
}

// NewPoller creates a new poller
func NewPoller(engine *Engine, cfg config.PollConfig) *Poller {
	p := &Poller{
		engine:         engine,
		cfg:            cfg,
		partnerKick:    make(chan struct{}, 1),
		challengeKick:  make(chan struct{}, 1),
		challengeRearm: make(chan struct{}, 1),
	}
	engine.Challenges.OnChange(p.challengeChanged)
	return p
}

// challengeChanged asks the challenge loop to re-arm when the poll interval
// no longer matches the armed timer.
func (p *Poller) challengeChanged() {
	if time.Duration(p.armed.Load()) == p.engine.Challenges.PollInterval() {
		return
	}
	select {
	case p.challengeRearm <- struct{}{}:
	default:
	}
}

func (p *Poller) challengeInterval() time.Duration {
	d := p.engine.Challenges.PollInterval()
	p.armed.Store(int64(d))
	return d
}

// Foreground requests an immediate refresh of both stores.
func (p *Poller) Foreground() {
	for _, ch := range []chan struct{}{p.partnerKick, p.challengeKick} {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.loop(ctx, "partner", p.partnerKick, nil, func() time.Duration { return p.cfg.PartnerInterval }, p.refreshPartners)
		return nil
	})
	g.Go(func() error {
		p.loop(ctx, "challenge", p.challengeKick, p.challengeRearm, p.challengeInterval, p.refreshChallenges)
		return nil
	})
	return g.Wait()
}

// loop ticks every interval and on kick. A receive on rearm restarts the
// timer with a fresh interval without ticking; a nil rearm never fires.
func (p *Poller) loop(ctx context.Context, name string, kick, rearm <-chan struct{}, interval func() time.Duration, tick func(context.Context)) {
	log.Debug().Str("poller", name).Msg("Poller started")
	timer := time.NewTimer(interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("poller", name).Msg("Poller stopped")
			return
		case <-timer.C:
		case <-kick:
			stopTimer(timer)
		case <-rearm:
			stopTimer(timer)
			d := interval()
			log.Debug().Str("poller", name).Dur("interval", d).Msg("Poll interval changed")
			timer.Reset(d)
			continue
		}

		if p.engine.Session.Authenticated() {
			tick(ctx)
		}
		timer.Reset(interval())
	}
}

func (p *Poller) refreshPartners(ctx context.Context) {
	p.engine.Partners.LoadLinks(ctx, true)
	p.engine.Partners.RefreshIncomingInvites(ctx)
}

func (p *Poller) refreshChallenges(ctx context.Context) {
	if err := p.engine.Challenges.RefreshAll(ctx); err != nil {
		log.Debug().Err(err).Msg("Challenge poll failed")
	}
}

func stopTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
