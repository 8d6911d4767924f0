package timer

import (
	"container/heap"
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerManager_FiresOnce(t *testing.T) {
	m := NewTimerManagerWithResolution(5 * time.Millisecond)
	defer m.Stop()

	fired := make(chan struct{}, 1)
	m.AddTimer(10*time.Millisecond, 0, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	if n := m.Len(); n != 0 {
		t.Errorf("one-shot task should be dropped, %d left", n)
	}
}

func TestTimerManager_Remove(t *testing.T) {
	m := NewTimerManagerWithResolution(5 * time.Millisecond)
	defer m.Stop()

	var count int32
	id := m.AddTimer(30*time.Millisecond, 0, func() { atomic.AddInt32(&count, 1) })
	m.RemoveTimer(id)
	m.RemoveTimer(12345)

	time.Sleep(80 * time.Millisecond)
	if atomic.LoadInt32(&count) != 0 {
		t.Error("removed timer fired")
	}
}

func TestTimerManager_Interval(t *testing.T) {
	m := NewTimerManagerWithResolution(5 * time.Millisecond)
	defer m.Stop()

	var count int32
	id := m.AddTimer(0, 10*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&count) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.RemoveTimer(id)
	if atomic.LoadInt32(&count) < 3 {
		t.Fatalf("repeating timer ran %d times", count)
	}
}

func TestTimerQueue_Order(t *testing.T) {
	m := &TimerManager{}
	base := time.Now()
	for _, d := range []time.Duration{3, 1, 2} {
		m.queue = append(m.queue, &TimerTask{Id: int64(d), Execute: base.Add(d * time.Second)})
	}
	heap.Init(&m.queue)
	ready := m.due(base.Add(5 * time.Second))
	if len(ready) != 3 {
		t.Fatalf("expected 3 due tasks, got %d", len(ready))
	}
	for i, task := range ready {
		if task.Id != int64(i+1) {
			t.Errorf("task %d out of order: id %d", i, task.Id)
		}
	}
}
