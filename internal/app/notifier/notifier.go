// Package notifier owns the page's status banner.
package notifier

import (
	"context"
	"time"

	"github.com/okian/signupdesk/internal/dom"
	"github.com/okian/signupdesk/internal/domain/model"
	"github.com/okian/signupdesk/internal/env"
	"github.com/okian/signupdesk/pkg/logger"
	"github.com/okian/signupdesk/pkg/metrics"
)

// DefaultLifetime is how long a message stays visible.
const DefaultLifetime = 5 * time.Second

// HiddenClass marks the banner as not displayed.
const HiddenClass = "hidden"

// Thread runs document work on the page's event loop.
type Thread interface {
	Do(ctx context.Context, name string, fn func(ctx context.Context)) error
}

// Notifier shows one message at a time in the banner element.
type Notifier struct {
	el       *dom.Element
	thread   Thread
	env      env.Environment
	lifetime time.Duration
	logger   logger.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLifetime overrides DefaultLifetime.
func WithLifetime(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.lifetime = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// New binds a notifier to the banner element.
func New(el *dom.Element, thread Thread, e env.Environment, opts ...Option) *Notifier {
	n := &Notifier{
		el:       el,
		thread:   thread,
		env:      e,
		lifetime: DefaultLifetime,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Show replaces the banner content and schedules it to hide. It must be
// called from the event loop.
//
// Earlier hide timers are left running, so a message shown shortly after
// another may be hidden before its own lifetime ends.
func (n *Notifier) Show(text string, category model.Category) {
	if category == "" {
		category = model.CategoryInfo
	}
	n.el.SetTextContent(text)
	n.el.SetClassName(string(category))
	n.el.SetAttr("role", "alert")
	n.el.SetAttr("aria-live", "assertive")
	n.el.RemoveClass(HiddenClass)
	metrics.RecordMessageShown(string(category))

	n.env.AfterFunc(n.lifetime, n.hide)
}

func (n *Notifier) hide() {
	err := n.thread.Do(context.Background(), "hide-message", func(context.Context) {
		n.el.AddClass(HiddenClass)
	})
	if err != nil {
		n.logger.Debug(context.Background(), "message hide skipped", logger.Error(err))
	}
}

// Current returns the banner content. It must be called from the event loop.
func (n *Notifier) Current() (model.StatusMessage, bool) {
	var category model.Category
	for _, c := range n.el.ClassList() {
		switch model.Category(c) {
		case model.CategoryInfo, model.CategorySuccess, model.CategoryError:
			category = model.Category(c)
		}
	}
	msg := model.StatusMessage{Text: n.el.TextContent(), Category: category}
	return msg, !n.el.HasClass(HiddenClass)
}
