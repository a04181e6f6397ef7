package pipeline

import (
	"bytes"
	"crypto/sha256"
	"io"
	"sync"

	"syncheal/internal/logger"
	"syncheal/internal/model"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ChecksumFilter drops create and write events for files whose content is
// the same as the last time they were seen. Sync clients touch files often
// without changing them.
type ChecksumFilter struct {
	fs    afero.Fs
	mu    sync.Mutex
	cache map[string][]byte
}

func NewChecksumFilter(fsys afero.Fs) *ChecksumFilter {
	return &ChecksumFilter{
		fs:    fsys,
		cache: make(map[string][]byte),
	}
}

func (cf *ChecksumFilter) Run(inCh <-chan model.FileEvent) <-chan model.FileEvent {
	outCh := make(chan model.FileEvent, cap(inCh))

	go func() {
		defer close(outCh)

		for event := range inCh {
			if event.Type == model.EventRemove || event.Type == model.EventRename {
				cf.forget(event.Path)
				outCh <- event
				continue
			}

			sum, err := cf.checksum(event.Path)
			if err != nil {
				// Directories and files gone again still count as a change.
				logger.Log.Debug("checksum failed, passing event through",
					zap.String("path", event.Path),
					zap.Error(err))
				cf.forget(event.Path)
				outCh <- event
				continue
			}

			cf.mu.Lock()
			prev, exists := cf.cache[event.Path]
			changed := !exists || !bytes.Equal(prev, sum)
			if changed {
				cf.cache[event.Path] = sum
			}
			cf.mu.Unlock()

			if changed {
				outCh <- event
			} else {
				logger.Log.Debug("checksum unchanged, skipping",
					zap.String("path", event.Path))
			}
		}
	}()

	return outCh
}

func (cf *ChecksumFilter) forget(path string) {
	cf.mu.Lock()
	delete(cf.cache, path)
	cf.mu.Unlock()
}

func (cf *ChecksumFilter) checksum(path string) ([]byte, error) {
	f, err := cf.fs.Open(path)
	if err != nil {
		return nil, err
	}

	defer func(f afero.File) {
		_ = f.Close()
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}
