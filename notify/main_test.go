package notify

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMultiplexer(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := NewMultiplexer[int]("test")
	a := make(chan int, 2)
	b := make(chan int, 2)
	m.Subscribe("a", a)
	m.Subscribe("b", b)
	m.Send(1)
	m.Unsubscribe(a)
	m.Send(2)
	if got := <-a; got != 1 {
		t.Fatalf("a got %d", got)
	}
	if len(a) != 0 {
		t.Fatal("a received after unsubscribing")
	}
	if got := <-b; got != 1 {
		t.Fatalf("b got %d", got)
	}
	if got := <-b; got != 2 {
		t.Fatalf("b got %d", got)
	}
	if m.Len() != 1 {
		t.Fatalf("len %d", m.Len())
	}
}

func TestMultiplexerSkipsFull(t *testing.T) {
	m := NewMultiplexer[int]("test")
	full := make(chan int)
	ok := make(chan int, 1)
	m.Subscribe("full", full)
	m.Subscribe("ok", ok)
	m.Send(3)
	if got := <-ok; got != 3 {
		t.Fatalf("got %d", got)
	}
}

func TestMultiplexerTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := NewMultiplexer[int]("test")
	m.Timeout = 10 * time.Millisecond
	slow := make(chan int)
	m.Subscribe("slow", slow)
	start := time.Now()
	m.Send(1)
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("did not wait for the subscriber")
	}
}

func TestUnsubscribeTwice(t *testing.T) {
	m := NewMultiplexer[int]("test")
	c := make(chan int)
	m.Subscribe("c", c)
	m.Unsubscribe(c)
	defer func() {
		if recover() == nil {
			t.Fatal("no panic")
		}
	}()
	m.Unsubscribe(c)
}
