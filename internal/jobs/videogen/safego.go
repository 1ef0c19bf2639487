package videogen

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// goSafe runs fn on g and turns a panic into that goroutine's error, so the
// group cancels its siblings and Wait reports it instead of the process dying.
func goSafe(g *errgroup.Group, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	})
}
