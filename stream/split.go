package stream

import (
	"context"

	"github.com/fxsml/streams/handle"
	"github.com/fxsml/streams/internal/region"
)

// Split consumes src once and replays its entire element sequence, in
// order, to two independent Source[T] values. A single upstream pull is
// amplified into one Rendezvous.Send per side, issued concurrently and
// joined before the next upstream pull is allowed — so neither side can run
// ahead of the other by more than one buffered element, and a slow or
// cancelled side never starves the fast one beyond that single element.
//
// Each side owns a children_state (§5.5): a set of subscriber ids, one per
// live Next call chain on that side. This implementation hands out exactly
// one id per side at construction, since Split exposes exactly one Source
// per side; the generalized set still matters because it's the mechanism
// that decides when a side closes. A side's id is removed the first time its
// Next call observes a terminal result (end-of-stream, failure, or its own
// ctx cancellation — per the Source contract, a terminal call is permanent),
// and the moment that side's set becomes empty its Rendezvous channel is
// Finished immediately, releasing anything parked on it. If both sides'
// sets are empty, the upstream Source[T]'s context is cancelled.
func Split[T any](src Source[T], opts ...ChannelOption) (Source[T], Source[T]) {
	s := newSettings(opts)
	upCtx, upCancel := context.WithCancel(context.Background())
	sp := &splitter[T]{
		src:      src,
		r:        region.New(splitterState{firsts: make(map[uint64]struct{}), seconds: make(map[uint64]struct{})}),
		a:        NewRendezvous[T](WithLogger(s.logger)),
		b:        NewRendezvous[T](WithLogger(s.logger)),
		log:      newLogAdapter(s.logger),
		upCtx:    upCtx,
		upCancel: upCancel,
	}
	ids := region.With(sp.r, func(st *splitterState) [2]uint64 {
		idA := st.nextID.Next()
		st.firsts[idA] = struct{}{}
		idB := st.nextID.Next()
		st.seconds[idB] = struct{}{}
		return [2]uint64{idA, idB}
	})
	sp.idA, sp.idB = ids[0], ids[1]
	return SourceFunc[T](sp.nextA), SourceFunc[T](sp.nextB)
}

// splitterState holds children_state (firsts/seconds/next_id, §5.5) plus
// bookkeeping for the single in-flight upstream pull and the once-only
// upstream failure delivery.
type splitterState struct {
	busy    bool
	srcDone bool

	srcErr        error
	errDeliveredA bool
	errDeliveredB bool

	firsts  map[uint64]struct{}
	seconds map[uint64]struct{}
	nextID  handle.Counter
}

type splitter[T any] struct {
	src Source[T]
	r   *region.Region[splitterState]
	a   *Rendezvous[T]
	b   *Rendezvous[T]
	log *logAdapter

	idA, idB uint64

	upCtx    context.Context
	upCancel context.CancelFunc
}

func (sp *splitter[T]) nextA(ctx context.Context) (T, bool, error) {
	sp.ensurePull()
	v, ok, err := sp.a.Receiver().Recv(ctx)
	if !ok {
		defer sp.unsubscribe(true)
		if err == nil {
			if serr, has := sp.takeErr(true); has {
				return v, false, serr
			}
		}
	}
	return v, ok, err
}

func (sp *splitter[T]) nextB(ctx context.Context) (T, bool, error) {
	sp.ensurePull()
	v, ok, err := sp.b.Receiver().Recv(ctx)
	if !ok {
		defer sp.unsubscribe(false)
		if err == nil {
			if serr, has := sp.takeErr(false); has {
				return v, false, serr
			}
		}
	}
	return v, ok, err
}

type takenErr struct {
	err error
	has bool
}

func (sp *splitter[T]) takeErr(isA bool) (error, bool) {
	res := region.With(sp.r, func(s *splitterState) takenErr {
		if s.srcErr == nil {
			return takenErr{}
		}
		if isA {
			if s.errDeliveredA {
				return takenErr{}
			}
			s.errDeliveredA = true
		} else {
			if s.errDeliveredB {
				return takenErr{}
			}
			s.errDeliveredB = true
		}
		return takenErr{err: s.srcErr, has: true}
	})
	return res.err, res.has
}

// unsubscribe removes this side's subscriber id from its children_state
// set. When that removal empties the side's set, the side's Rendezvous
// channel is Finished immediately — this is what prevents a pull already in
// flight (or about to start) from parking against a side nobody will ever
// consume from again. When both sides are empty, the upstream pull's
// context is cancelled through the same cascade.
func (sp *splitter[T]) unsubscribe(isA bool) {
	type result struct {
		sideEmptied bool
		bothEmpty   bool
	}
	res := region.With(sp.r, func(s *splitterState) result {
		if isA {
			delete(s.firsts, sp.idA)
		} else {
			delete(s.seconds, sp.idB)
		}
		sideEmpty := len(s.firsts) == 0
		if !isA {
			sideEmpty = len(s.seconds) == 0
		}
		return result{sideEmptied: sideEmpty, bothEmpty: len(s.firsts) == 0 && len(s.seconds) == 0}
	})
	if res.sideEmptied {
		if isA {
			sp.a.Finish()
		} else {
			sp.b.Finish()
		}
	}
	if res.bothEmpty {
		sp.upCancel()
	}
}

func (sp *splitter[T]) ensurePull() {
	acquired := region.With(sp.r, func(s *splitterState) bool {
		if s.busy || s.srcDone || (len(s.firsts) == 0 && len(s.seconds) == 0) {
			return false
		}
		s.busy = true
		return true
	})
	if acquired {
		go sp.pull()
	}
}

func (sp *splitter[T]) pull() {
	v, ok, err := sp.src.Next(sp.upCtx)

	if err != nil {
		sp.log.error("stream: split upstream failed", "error", err)
		region.With(sp.r, func(s *splitterState) struct{} {
			s.srcDone = true
			s.srcErr = err
			s.busy = false
			return struct{}{}
		})
		sp.a.Finish()
		sp.b.Finish()
		return
	}
	if !ok {
		region.With(sp.r, func(s *splitterState) struct{} {
			s.srcDone = true
			s.busy = false
			return struct{}{}
		})
		sp.a.Finish()
		sp.b.Finish()
		return
	}

	flags := region.With(sp.r, func(s *splitterState) [2]bool {
		return [2]bool{len(s.firsts) > 0, len(s.seconds) > 0}
	})
	wantA, wantB := flags[0], flags[1]

	done := make(chan struct{}, 2)
	pending := 0
	if wantA {
		pending++
		go func() {
			_ = sp.a.Send(sp.upCtx, v)
			done <- struct{}{}
		}()
	}
	if wantB {
		pending++
		go func() {
			_ = sp.b.Send(sp.upCtx, v)
			done <- struct{}{}
		}()
	}
	for i := 0; i < pending; i++ {
		<-done
	}

	region.With(sp.r, func(s *splitterState) struct{} {
		s.busy = false
		return struct{}{}
	})
	// A Next call that arrived while this pull was busy did not start one of
	// its own and may already be parked, so the next pull starts here.
	sp.ensurePull()
}
