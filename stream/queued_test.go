package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/fxsml/streams/stream/bufstate"
)

func TestQueued_NewPanicsOnNonPositiveBoundedLimit(t *testing.T) {
	defer func() {
		if r := recover(); r != ErrInvalidLimit {
			t.Fatalf("expected panic(ErrInvalidLimit), got %v", r)
		}
	}()
	NewQueued[int](bufstate.Policy{Kind: bufstate.DropOldest, Limit: 0})
}

func TestQueued_UnboundedNeverDropsAndNeverBlocks(t *testing.T) {
	b := NewQueued[int](bufstate.Policy{Kind: bufstate.Unbounded})
	for i := 0; i < 5; i++ {
		b.Send(i)
	}

	ctx := context.Background()
	var got []int
	for i := 0; i < 5; i++ {
		v, ok, err := b.Receiver().Recv(ctx)
		if err != nil || !ok {
			t.Fatalf("unexpected recv error: %v", err)
		}
		got = append(got, v)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("expected FIFO order 0..4, got %v", got)
		}
	}
}

func TestQueued_DropOldestLimitTwoSequence(t *testing.T) {
	b := NewQueued[int](bufstate.Policy{Kind: bufstate.DropOldest, Limit: 2})
	b.Send(1)
	b.Send(2)
	b.Send(3) // queue already at limit: 3 is dropped, 1 and 2 remain

	ctx := context.Background()
	v1, _, _ := b.Receiver().Recv(ctx)
	v2, _, _ := b.Receiver().Recv(ctx)
	if v1 != 1 || v2 != 2 {
		t.Fatalf("expected [1 2] with the incoming element dropped, got [%d %d]", v1, v2)
	}
}

func TestQueued_DropNewestLimitTwoSequence(t *testing.T) {
	b := NewQueued[int](bufstate.Policy{Kind: bufstate.DropNewest, Limit: 2})
	b.Send(1)
	b.Send(2)
	b.Send(3) // queue at limit: oldest (1) is evicted, 3 takes its place

	ctx := context.Background()
	v1, _, _ := b.Receiver().Recv(ctx)
	v2, _, _ := b.Receiver().Recv(ctx)
	if v1 != 2 || v2 != 3 {
		t.Fatalf("expected [2 3] with the oldest element evicted, got [%d %d]", v1, v2)
	}
}

func TestQueued_SendNeverBlocksEvenAtLimit(t *testing.T) {
	b := NewQueued[int](bufstate.Policy{Kind: bufstate.DropOldest, Limit: 1})
	done := make(chan struct{})
	go func() {
		b.Send(1)
		b.Send(2)
		b.Send(3)
		close(done)
	}()
	select {
	case <-done:
	default:
	}
	<-done // Send is documented to never suspend; this must not hang.
}

func TestQueued_FinishDrainsThenEOS(t *testing.T) {
	b := NewQueued[int](bufstate.Policy{Kind: bufstate.Unbounded})
	b.Send(1)
	b.Finish()

	ctx := context.Background()
	v, ok, err := b.Receiver().Recv(ctx)
	if err != nil || !ok || v != 1 {
		t.Fatalf("expected the buffered element first, got (%v,%v,%v)", v, ok, err)
	}
	_, ok, err = b.Receiver().Recv(ctx)
	if ok || err != nil {
		t.Fatalf("expected end-of-stream after drain, got (ok=%v, err=%v)", ok, err)
	}
}

func TestQueued_FailSurfacesAfterBufferedElementsDrain(t *testing.T) {
	b := NewQueued[int](bufstate.Policy{Kind: bufstate.Unbounded})
	b.Send(1)
	wantErr := errors.New("boom")
	b.Fail(wantErr)

	ctx := context.Background()
	v, ok, err := b.Receiver().Recv(ctx)
	if err != nil || !ok || v != 1 {
		t.Fatalf("expected the buffered element before the failure, got (%v,%v,%v)", v, ok, err)
	}
	_, ok, err = b.Receiver().Recv(ctx)
	if ok || !errors.Is(err, wantErr) {
		t.Fatalf("expected the failure next, got (ok=%v, err=%v)", ok, err)
	}
}

func TestQueued_CancelDownstreamDiscardsBuffer(t *testing.T) {
	b := NewQueued[int](bufstate.Policy{Kind: bufstate.Unbounded})
	b.Send(1)
	b.CancelDownstream()

	_, ok, err := b.Receiver().Recv(context.Background())
	if ok || err != nil {
		t.Fatalf("expected end-of-stream after downstream cancellation, got (ok=%v, err=%v)", ok, err)
	}
}

func TestQueued_CancelUpstreamDiscardsBuffer(t *testing.T) {
	b := NewQueued[int](bufstate.Policy{Kind: bufstate.Unbounded})
	b.Send(1)
	b.CancelUpstream()

	v, ok, err := b.Receiver().Recv(context.Background())
	if err != nil || ok || v != 0 {
		t.Fatalf("expected end-of-stream after upstream cancellation discarded the buffer, got (%v,%v,%v)", v, ok, err)
	}
}
