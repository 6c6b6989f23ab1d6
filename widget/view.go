package widget

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Field names one input of the form.
type Field string

const (
	FieldText       Field = "text"
	FieldSize       Field = "size"
	FieldBackground Field = "background"
	FieldForeground Field = "foreground"
)

// ErrUnknownField is returned by Apply for a field the form does not have.
var ErrUnknownField = errors.New("unknown field")

// View is the state holder for a single mounted widget. Every setter
// replaces its field and re-renders before returning, so Preview always
// reflects the latest DisplayConfig.
type View struct {
	mu       sync.Mutex
	cfg      DisplayConfig
	preview  Preview
	lastUsed time.Time
	lastSeq  int64

	subMu  sync.Mutex
	subs   map[int]func(Preview)
	nextID int
}

// NewView creates a view showing cfg.
func NewView(cfg DisplayConfig) *View {
	v := &View{
		cfg:  cfg,
		subs: make(map[int]func(Preview)),
	}
	v.preview = RenderPreview(cfg)
	v.lastUsed = time.Now()
	return v
}

// Config returns the current display configuration.
func (v *View) Config() DisplayConfig {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cfg
}

// Preview returns the preview for the current configuration.
func (v *View) Preview() Preview {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastUsed = time.Now()
	return v.preview
}

// Apply sets field from raw form input. seq orders changes coming from one
// page: a change with seq at or below the last applied one is stale and is
// dropped, leaving the current state untouched. seq <= 0 is always applied.
// The returned bool reports whether the change was applied.
func (v *View) Apply(seq int64, field Field, raw string) (Preview, bool, error) {
	var apply func(*DisplayConfig)
	switch field {
	case FieldText:
		apply = func(c *DisplayConfig) { c.PayloadText = raw }
	case FieldSize:
		size, err := CoerceSize(raw)
		if err != nil {
			return Preview{}, false, err
		}
		apply = func(c *DisplayConfig) { c.PixelSize = size }
	case FieldBackground:
		apply = func(c *DisplayConfig) { c.BackgroundColor = raw }
	case FieldForeground:
		apply = func(c *DisplayConfig) { c.ForegroundColor = raw }
	default:
		return Preview{}, false, fmt.Errorf("%w %q", ErrUnknownField, field)
	}
	p, applied := v.update(seq, apply)
	return p, applied, nil
}

// SetPayloadText replaces the payload text.
func (v *View) SetPayloadText(text string) Preview {
	p, _ := v.update(0, func(c *DisplayConfig) { c.PayloadText = text })
	return p
}

// SetPixelSize replaces the pixel size. Callers coerce raw input with
// CoerceSize first.
func (v *View) SetPixelSize(size int) Preview {
	p, _ := v.update(0, func(c *DisplayConfig) { c.PixelSize = size })
	return p
}

// SetBackgroundColor replaces the background colour string.
func (v *View) SetBackgroundColor(color string) Preview {
	p, _ := v.update(0, func(c *DisplayConfig) { c.BackgroundColor = color })
	return p
}

// SetForegroundColor replaces the foreground colour string.
func (v *View) SetForegroundColor(color string) Preview {
	p, _ := v.update(0, func(c *DisplayConfig) { c.ForegroundColor = color })
	return p
}

// Subscribe registers fn to receive every preview produced by a setter.
// fn runs synchronously on the setter's goroutine.
func (v *View) Subscribe(fn func(Preview)) (unsubscribe func()) {
	v.subMu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	v.subMu.Unlock()

	return func() {
		v.subMu.Lock()
		delete(v.subs, id)
		v.subMu.Unlock()
	}
}

// Export serialises the rendered surface as a PNG download. It reports false
// without doing anything when the payload is empty or nothing was rendered.
func (v *View) Export() (Download, bool) {
	v.mu.Lock()
	cfg, p := v.cfg, v.preview
	v.lastUsed = time.Now()
	v.mu.Unlock()

	if cfg.PayloadText == "" || p.Surface == nil {
		return Download{}, false
	}
	return newDownload(p.Surface)
}

// IdleSince reports when the view was last touched.
func (v *View) IdleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastUsed
}

// LastSeq returns the sequence number of the last ordered change applied.
func (v *View) LastSeq() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeq
}

func (v *View) update(seq int64, apply func(*DisplayConfig)) (Preview, bool) {
	v.mu.Lock()
	if seq > 0 {
		if seq <= v.lastSeq {
			p := v.preview
			v.lastUsed = time.Now()
			v.mu.Unlock()
			return p, false
		}
		v.lastSeq = seq
	}
	apply(&v.cfg)
	v.preview = RenderPreview(v.cfg)
	v.lastUsed = time.Now()
	p := v.preview
	v.mu.Unlock()

	v.subMu.Lock()
	subs := make([]func(Preview), 0, len(v.subs))
	for _, fn := range v.subs {
		subs = append(subs, fn)
	}
	v.subMu.Unlock()

	for _, fn := range subs {
		fn(p)
	}
	return p, true
}
