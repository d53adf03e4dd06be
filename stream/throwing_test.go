package stream

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestThrowing_SendNeverBlocks(t *testing.T) {
	ch := NewThrowing[int]()
	done := make(chan struct{})
	go func() {
		ch.Send(1)
		ch.Send(2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Send blocked with no consumer present")
	}

	ctx := context.Background()
	v1, ok1, _ := ch.Receiver().Recv(ctx)
	v2, ok2, _ := ch.Receiver().Recv(ctx)
	if !ok1 || !ok2 || v1 != 1 || v2 != 2 {
		t.Fatalf("expected elements in FIFO order, got (%v,%v) (%v,%v)", v1, ok1, v2, ok2)
	}
}

func TestThrowing_RecvBlocksUntilSend(t *testing.T) {
	ch := NewThrowing[int]()
	type result struct {
		v   int
		ok  bool
		err error
	}
	results := make(chan result, 1)
	go func() {
		v, ok, err := ch.Receiver().Recv(context.Background())
		results <- result{v, ok, err}
	}()

	select {
	case <-results:
		t.Fatal("Recv completed before Send")
	case <-time.After(20 * time.Millisecond):
	}

	ch.Send(9)

	select {
	case r := <-results:
		if !r.ok || r.err != nil || r.v != 9 {
			t.Fatalf("expected (9, true, nil), got %+v", r)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Recv did not unblock after Send")
	}
}

func TestThrowing_FinishDrainsBufferThenEOS(t *testing.T) {
	ch := NewThrowing[int]()
	ch.Send(1)
	ch.Send(2)
	ch.Finish()

	ctx := context.Background()
	v1, ok1, err1 := ch.Receiver().Recv(ctx)
	v2, ok2, err2 := ch.Receiver().Recv(ctx)
	_, ok3, err3 := ch.Receiver().Recv(ctx)

	if !ok1 || err1 != nil || v1 != 1 {
		t.Fatalf("expected first buffered element, got (%v,%v,%v)", v1, ok1, err1)
	}
	if !ok2 || err2 != nil || v2 != 2 {
		t.Fatalf("expected second buffered element, got (%v,%v,%v)", v2, ok2, err2)
	}
	if ok3 || err3 != nil {
		t.Fatalf("expected end-of-stream after the buffer drains, got (ok=%v, err=%v)", ok3, err3)
	}
}

func TestThrowing_FailMidStreamDeliversErrorOnceThenEOS(t *testing.T) {
	ch := NewThrowing[int]()
	ch.Send(1)
	wantErr := errors.New("boom")
	ch.Fail(wantErr)

	ctx := context.Background()
	v1, ok1, err1 := ch.Receiver().Recv(ctx)
	if !ok1 || err1 != nil || v1 != 1 {
		t.Fatalf("expected the buffered element before the failure, got (%v,%v,%v)", v1, ok1, err1)
	}
	_, ok2, err2 := ch.Receiver().Recv(ctx)
	if ok2 || !errors.Is(err2, wantErr) {
		t.Fatalf("expected the failure to surface exactly here, got (ok=%v, err=%v)", ok2, err2)
	}
	_, ok3, err3 := ch.Receiver().Recv(ctx)
	if ok3 || err3 != nil {
		t.Fatalf("expected end-of-stream after the failure has surfaced once, got (ok=%v, err=%v)", ok3, err3)
	}
}

func TestThrowing_FailWithParkedWaitersResumesAllWithError(t *testing.T) {
	ch := NewThrowing[int]()
	wantErr := errors.New("boom")
	type result struct {
		ok  bool
		err error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, ok, err := ch.Receiver().Recv(context.Background())
			results <- result{ok, err}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	ch.Fail(wantErr)

	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if r.ok || !errors.Is(r.err, wantErr) {
				t.Fatalf("expected every parked waiter to observe the failure, got %+v", r)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("a parked waiter was not resumed by Fail")
		}
	}
}

func TestThrowing_TerminalCallsAreIdempotent(t *testing.T) {
	ch := NewThrowing[int]()
	ch.Finish()
	ch.Fail(errors.New("ignored"))
	ch.Send(1) // also a no-op once closed

	_, ok, err := ch.Receiver().Recv(context.Background())
	if ok || err != nil {
		t.Fatalf("expected end-of-stream from the first terminal call to stick, got (ok=%v, err=%v)", ok, err)
	}
}

func TestThrowing_RecvCancellationDropsWaiterCleanly(t *testing.T) {
	ch := NewThrowing[int]()
	ctx, cancel := context.WithCancel(context.Background())

	recvDone := make(chan struct{})
	go func() {
		_, ok, err := ch.Receiver().Recv(ctx)
		if ok || err != nil {
			t.Errorf("expected end-of-stream on cancellation, got (ok=%v, err=%v)", ok, err)
		}
		close(recvDone)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-recvDone:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Recv did not return after context cancellation")
	}

	ch.Send(5)
	v, ok, err := ch.Receiver().Recv(context.Background())
	if err != nil || !ok || v != 5 {
		t.Fatalf("expected the channel to still work after a cancelled waiter, got (%v,%v,%v)", v, ok, err)
	}
}
