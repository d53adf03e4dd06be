package stream

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSuspending_NewPanicsOnNonPositiveLimit(t *testing.T) {
	defer func() {
		if r := recover(); r != ErrInvalidLimit {
			t.Fatalf("expected panic(ErrInvalidLimit), got %v", r)
		}
	}()
	NewSuspending[int](0)
}

func TestSuspending_SendWithinCapacityNeverBlocks(t *testing.T) {
	b := NewSuspending[int](2)
	ctx := context.Background()
	if err := b.Send(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Send(ctx, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSuspending_SendAtCapacityParksUntilConsumed(t *testing.T) {
	b := NewSuspending[int](2)
	ctx := context.Background()
	_ = b.Send(ctx, 1)
	_ = b.Send(ctx, 2)

	sendDone := make(chan error, 1)
	go func() { sendDone <- b.Send(ctx, 3) }()

	select {
	case <-sendDone:
		t.Fatal("Send completed even though the buffer was at capacity")
	case <-time.After(20 * time.Millisecond):
	}

	v, ok, err := b.Receiver().Recv(ctx)
	if err != nil || !ok || v != 1 {
		t.Fatalf("expected the oldest buffered element, got (%v,%v,%v)", v, ok, err)
	}

	select {
	case err := <-sendDone:
		if err != nil {
			t.Fatalf("unexpected Send error: %v", err)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Send did not unblock once the buffer had room")
	}

	v2, _, _ := b.Receiver().Recv(ctx)
	v3, _, _ := b.Receiver().Recv(ctx)
	if v2 != 2 || v3 != 3 {
		t.Fatalf("expected remaining elements in FIFO order, got %v then %v", v2, v3)
	}
}

func TestSuspending_CapacityTwoSequence(t *testing.T) {
	b := NewSuspending[int](2)
	ctx := context.Background()

	for _, v := range []int{1, 2} {
		if err := b.Send(ctx, v); err != nil {
			t.Fatalf("unexpected error sending %d: %v", v, err)
		}
	}

	var got []int
	for i := 0; i < 2; i++ {
		v, ok, err := b.Receiver().Recv(ctx)
		if err != nil || !ok {
			t.Fatalf("unexpected recv error: %v", err)
		}
		got = append(got, v)
	}
	if got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected FIFO order [1 2], got %v", got)
	}
}

func TestSuspending_FinishDrainsThenEOS(t *testing.T) {
	b := NewSuspending[int](2)
	ctx := context.Background()
	_ = b.Send(ctx, 1)
	b.Finish()

	v, ok, err := b.Receiver().Recv(ctx)
	if err != nil || !ok || v != 1 {
		t.Fatalf("expected the buffered element first, got (%v,%v,%v)", v, ok, err)
	}
	_, ok, err = b.Receiver().Recv(ctx)
	if ok || err != nil {
		t.Fatalf("expected end-of-stream after drain, got (ok=%v, err=%v)", ok, err)
	}
}

func TestSuspending_FailSurfacesAfterBufferedElementsDrain(t *testing.T) {
	b := NewSuspending[int](2)
	ctx := context.Background()
	_ = b.Send(ctx, 1)
	wantErr := errors.New("boom")
	b.Fail(wantErr)

	v, ok, err := b.Receiver().Recv(ctx)
	if err != nil || !ok || v != 1 {
		t.Fatalf("expected the buffered element before the failure, got (%v,%v,%v)", v, ok, err)
	}
	_, ok, err = b.Receiver().Recv(ctx)
	if ok || !errors.Is(err, wantErr) {
		t.Fatalf("expected the failure next, got (ok=%v, err=%v)", ok, err)
	}
}

func TestSuspending_CancelUpstreamWakesParkedProducerRetainsQueue(t *testing.T) {
	b := NewSuspending[int](1)
	ctx := context.Background()
	_ = b.Send(ctx, 1)

	sendDone := make(chan error, 1)
	go func() { sendDone <- b.Send(ctx, 2) }()
	time.Sleep(20 * time.Millisecond)

	b.CancelUpstream()

	select {
	case <-sendDone:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("CancelUpstream did not wake the parked producer")
	}

	v, ok, err := b.Receiver().Recv(ctx)
	if err != nil || !ok || v != 1 {
		t.Fatalf("expected the already-buffered element retained, got (%v,%v,%v)", v, ok, err)
	}
}

func TestSuspending_CancelDownstreamDiscardsBuffer(t *testing.T) {
	b := NewSuspending[int](2)
	ctx := context.Background()
	_ = b.Send(ctx, 1)

	b.CancelDownstream()

	_, ok, err := b.Receiver().Recv(ctx)
	if ok || err != nil {
		t.Fatalf("expected end-of-stream after downstream cancellation, got (ok=%v, err=%v)", ok, err)
	}
}

func TestSuspending_SendCancellationDropsElementWithoutAffectingQueue(t *testing.T) {
	b := NewSuspending[int](1)
	ctx := context.Background()
	_ = b.Send(ctx, 1)

	cancelCtx, cancel := context.WithCancel(context.Background())
	sendDone := make(chan struct{})
	go func() {
		_ = b.Send(cancelCtx, 2)
		close(sendDone)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-sendDone:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("cancelled Send did not return")
	}

	v, ok, _ := b.Receiver().Recv(ctx)
	if !ok || v != 1 {
		t.Fatalf("expected the pre-existing buffered element untouched, got (%v,%v)", v, ok)
	}
}
