// Package progress renders per-record export progress as a terminal bar.
package progress

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Bar tracks one export pass. A nil or disabled Bar ignores updates.
type Bar struct {
	bar *progressbar.ProgressBar
}

// New creates a bar writing to w. When enabled is false the returned Bar
// draws nothing.
func New(w io.Writer, description string, total int, enabled bool) *Bar {
	if !enabled {
		return &Bar{}
	}
	return &Bar{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		),
	}
}

// Update moves the bar to done of total records. Its signature matches
// export.Progress.
func (b *Bar) Update(done, total int) {
	if b == nil || b.bar == nil {
		return
	}
	if int64(total) != b.bar.GetMax64() {
		b.bar.ChangeMax(total)
	}
	_ = b.bar.Set(done)
}

// Finish completes and clears the bar.
func (b *Bar) Finish() error {
	if b == nil || b.bar == nil {
		return nil
	}
	return b.bar.Finish()
}
