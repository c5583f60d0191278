package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// seqResult implements Result
type seqResult struct {
	seq int
	err error
}

func (r *seqResult) GetError() error {
	return r.err
}

// seqJob sleeps for delay and reports its sequence number.
type seqJob struct {
	seq      int
	delay    time.Duration
	fail     bool
	panics   bool
	executed *int32
}

func (j *seqJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.panics {
		panic("boom")
	}
	if j.delay > 0 {
		select {
		case <-time.After(j.delay):
		case <-ctx.Done():
			return &seqResult{seq: j.seq, err: ctx.Err()}
		}
	}
	if j.fail {
		return &seqResult{seq: j.seq, err: errors.New("job error")}
	}
	return &seqResult{seq: j.seq}
}

func TestNewPool_WorkerCount(t *testing.T) {
	for in, want := range map[int]int{5: 5, 0: 1, -3: 1} {
		if got := NewPool(context.Background(), in).workers; got != want {
			t.Errorf("NewPool(%d): expected %d workers, got %d", in, want, got)
		}
	}
}

func TestPool_Wait_SubmissionOrder(t *testing.T) {
	pool := NewPool(context.Background(), 4)
	pool.Start()

	// Early jobs sleep longest so they finish last
	const n = 8
	for i := 0; i < n; i++ {
		pool.Submit(&seqJob{seq: i, delay: time.Duration(n-i) * 5 * time.Millisecond})
	}
	results := pool.Wait()

	if len(results) != n {
		t.Fatalf("expected %d results, got %d", n, len(results))
	}
	for i, r := range results {
		if got := r.(*seqResult).seq; got != i {
			t.Errorf("result %d: expected seq %d, got %d", i, i, got)
		}
	}
}

func TestPool_RunsConcurrently(t *testing.T) {
	pool := NewPool(context.Background(), 4)
	pool.Start()

	start := time.Now()
	for i := 0; i < 4; i++ {
		pool.Submit(&seqJob{seq: i, delay: 50 * time.Millisecond})
	}
	pool.Wait()

	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("4 jobs on 4 workers took %v, expected about 50ms", elapsed)
	}
}

func TestPool_Errors(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Submit(&seqJob{seq: 0})
	pool.Submit(&seqJob{seq: 1, fail: true})
	pool.Submit(&seqJob{seq: 2})
	results := pool.Wait()

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].GetError() != nil || results[2].GetError() != nil {
		t.Error("expected jobs 0 and 2 to succeed")
	}
	if results[1].GetError() == nil {
		t.Error("expected job 1 to fail")
	}
}

func TestPool_RecoversPanics(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	pool.Start()
	pool.Submit(&seqJob{seq: 0, panics: true})
	pool.Submit(&seqJob{seq: 1})
	results := pool.Wait()

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].GetError() == nil {
		t.Error("expected the panicking job to fail")
	}
	if _, ok := results[1].(*seqResult); !ok || results[1].GetError() != nil {
		t.Errorf("expected the next job to run normally, got %#v", results[1])
	}
}

func TestPool_Progress(t *testing.T) {
	var calls []int
	pool := NewPool(context.Background(), 3, WithProgress(func(done, submitted int, r Result) {
		calls = append(calls, done)
	}))
	pool.Start()
	for i := 0; i < 5; i++ {
		pool.Submit(&seqJob{seq: i})
	}
	pool.Wait()

	if len(calls) != 5 {
		t.Fatalf("expected 5 progress calls, got %d", len(calls))
	}
	for i, done := range calls {
		if done != i+1 {
			t.Errorf("progress call %d: expected done=%d, got %d", i, i+1, done)
		}
	}
}

func TestPool_ManyJobsDoNotDeadlock(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	finished := make(chan []Result)
	go func() {
		for i := 0; i < 100; i++ {
			pool.Submit(&seqJob{seq: i})
		}
		finished <- pool.Wait()
	}()

	select {
	case results := <-finished:
		if len(results) != 100 {
			t.Errorf("expected 100 results, got %d", len(results))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pool deadlocked")
	}
}

func TestPool_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	var executed int32
	pool.Submit(&seqJob{seq: 0, delay: time.Second, executed: &executed})
	time.Sleep(20 * time.Millisecond)
	cancel()

	if pool.Submit(&seqJob{seq: 1, executed: &executed}) {
		t.Error("expected Submit to refuse jobs after cancel")
	}

	results := pool.Wait()
	if len(results) != 1 {
		t.Fatalf("expected only the running job to report, got %d results", len(results))
	}
	if !errors.Is(results[0].GetError(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", results[0].GetError())
	}
	if n := atomic.LoadInt32(&executed); n != 1 {
		t.Errorf("expected 1 executed job, got %d", n)
	}
}
