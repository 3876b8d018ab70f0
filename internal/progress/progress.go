package progress

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Bar counts finished units of work. A nil *Bar is valid and does nothing, so
// callers never need to check whether progress reporting is enabled.
type Bar struct {
	mu  sync.Mutex
	max int
	bar *progressbar.ProgressBar
}

func New(w io.Writer, description string) *Bar {
	return &Bar{
		bar: progressbar.NewOptions(0,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
		),
	}
}

// AddMax grows the expected total by n.
func (b *Bar) AddMax(n int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.max += n
	b.bar.ChangeMax(b.max)
}

func (b *Bar) Add(n int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Add(n)
}

func (b *Bar) Finish() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Finish()
}
