package pipeline

import (
	"time"

	"syncheal/internal/model"
)

// Debounce holds back each path's latest event until the path has been quiet
// for delay. Pending events are flushed when inCh closes.
func Debounce(inCh <-chan model.FileEvent, delay time.Duration) <-chan model.FileEvent {
	outCh := make(chan model.FileEvent, cap(inCh))

	go func() {
		defer close(outCh)

		pending := make(map[string]model.FileEvent)
		deadlines := make(map[string]time.Time)

		timer := time.NewTimer(delay)
		timer.Stop()

		rearm := func() {
			var next time.Time
			for _, d := range deadlines {
				if next.IsZero() || d.Before(next) {
					next = d
				}
			}
			if !next.IsZero() {
				timer.Reset(time.Until(next))
			}
		}

		for {
			select {
			case event, ok := <-inCh:
				if !ok {
					timer.Stop()
					for path, e := range pending {
						outCh <- e
						delete(pending, path)
					}
					return
				}

				pending[event.Path] = event
				deadlines[event.Path] = time.Now().Add(delay)
				rearm()

			case <-timer.C:
				now := time.Now()
				for path, d := range deadlines {
					if d.After(now) {
						continue
					}
					outCh <- pending[path]
					delete(pending, path)
					delete(deadlines, path)
				}
				rearm()
			}
		}
	}()

	return outCh
}
