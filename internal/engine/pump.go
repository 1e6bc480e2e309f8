package engine

import "sync"

// streamPump runs resource I/O steps for every in-flight request on one
// shared goroutine, in submission order. Handlers therefore see their
// open/skip/read sequence from a single processing thread that is not
// dedicated to their request.
type streamPump struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []func()
	closed bool
	done   chan struct{}
}

func newStreamPump() *streamPump {
	p := &streamPump{done: make(chan struct{})}
	p.cond = sync.NewCond(&p.mu)
	go p.run()
	return p
}

func (p *streamPump) run() {
	defer close(p.done)
	for {
		p.mu.Lock()
		for len(p.tasks) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.tasks) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		fn := p.tasks[0]
		p.tasks = p.tasks[1:]
		p.mu.Unlock()

		fn()
	}
}

// do queues fn for sequential execution. Returns false once the pump is
// closed.
func (p *streamPump) do(fn func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.tasks = append(p.tasks, fn)
	p.cond.Signal()
	return true
}

// close stops the pump after the queued work finishes and waits for it.
func (p *streamPump) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	p.cond.Signal()
	p.mu.Unlock()
	<-p.done
}
