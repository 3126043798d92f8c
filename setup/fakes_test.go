package setup

import (
	"context"
	"sync"
)

// callLog records calls from every fake, in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(call string) int {
	n := 0
	for _, c := range l.get() {
		if c == call {
			n++
		}
	}
	return n
}

type fakeCleaner struct {
	log *callLog
	err error
}

func (c *fakeCleaner) DeletePreviousInstallers(ctx context.Context) error {
	c.log.add("cleanup")
	return c.err
}

type fakeStager struct {
	log *callLog
	err error

	// if set, Stage blocks until it's closed
	block chan struct{}
}

func (s *fakeStager) Stage(ctx context.Context, artifactPath string) error {
	s.log.add("stage " + artifactPath)
	if s.block != nil {
		<-s.block
	}
	return s.err
}

type fakeInstaller struct {
	log *callLog
	err error
}

func (i *fakeInstaller) QuitAndInstall() error {
	i.log.add("quit-and-install")
	return i.err
}

type fakeQuitFlag struct {
	log *callLog
	ProcessQuitFlag
}

func (f *fakeQuitFlag) Mark() {
	f.log.add("mark-quit")
	f.ProcessQuitFlag.Mark()
}

type fakePresenter struct {
	log        *callLog
	categories []DialogCategory
	errs       []error
}

func (p *fakePresenter) Present(category DialogCategory, err error) {
	p.log.add("present " + category.String())
	p.categories = append(p.categories, category)
	p.errs = append(p.errs, err)
}
