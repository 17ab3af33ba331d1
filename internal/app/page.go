// Package app assembles one page: its document, its event loop and the
// components that read and write the document on that loop.
package app

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	queue "github.com/okian/signupdesk/internal/adapters/mq/queue"
	worker "github.com/okian/signupdesk/internal/adapters/mq/worker"
	"github.com/okian/signupdesk/internal/app/loader"
	"github.com/okian/signupdesk/internal/app/notifier"
	"github.com/okian/signupdesk/internal/app/submitter"
	"github.com/okian/signupdesk/internal/dom"
	"github.com/okian/signupdesk/internal/domain/model"
	"github.com/okian/signupdesk/internal/env"
	"github.com/okian/signupdesk/pkg/logger"
)

// Element ids the page requires.
const (
	IDActivitiesList = "activities-list"
	IDActivity       = "activity"
	IDSignupForm     = "signup-form"
	IDMessage        = "message"
	IDEmail          = "email"
)

//go:embed page.html
var defaultMarkup string

// ErrClosed is returned by operations on a closed page.
var ErrClosed = errors.New("page closed")

// API is the remote activities service.
type API interface {
	loader.Catalog
	submitter.Signer
}

// Page is one loaded document. All document access goes through its loop.
type Page struct {
	id  string
	doc *dom.Document

	loop      *worker.Loop
	notifier  *notifier.Notifier
	loader    *loader.Loader
	submitter *submitter.Submitter

	closeOnce sync.Once
	cancel    context.CancelFunc
	logger    logger.Logger
}

type settings struct {
	markup    string
	env       env.Environment
	logger    logger.Logger
	queueSize int
	lifetime  time.Duration
	locale    language.Tag
}

// Option configures a Page.
type Option func(*settings)

// WithMarkup replaces the embedded page markup.
func WithMarkup(markup string) Option {
	return func(s *settings) { s.markup = markup }
}

// WithEnvironment sets the host environment.
func WithEnvironment(e env.Environment) Option {
	return func(s *settings) {
		if e != nil {
			s.env = e
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithQueueSize bounds the number of pending loop tasks.
func WithQueueSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithMessageLifetime sets how long banner messages stay visible.
func WithMessageLifetime(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.lifetime = d
		}
	}
}

// WithLocale sets the language used for numbers.
func WithLocale(tag language.Tag) Option {
	return func(s *settings) { s.locale = tag }
}

// New parses the markup, resolves the page elements and starts the loop.
// The loop outlives ctx's cancellation; call Close to stop it.
func New(ctx context.Context, api API, opts ...Option) (*Page, error) {
	s := settings{
		markup:    defaultMarkup,
		logger:    logger.Nop(),
		queueSize: 64,
		lifetime:  notifier.DefaultLifetime,
		locale:    language.English,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.env == nil {
		s.env = env.NewSystem()
	}

	doc, err := dom.ParseString(s.markup)
	if err != nil {
		return nil, err
	}
	els := make(map[string]*dom.Element, 5)
	for _, id := range []string{IDActivitiesList, IDActivity, IDSignupForm, IDMessage, IDEmail} {
		el, err := doc.RequireElementByID(id)
		if err != nil {
			return nil, err
		}
		els[id] = el
	}

	id := uuid.NewString()
	log := s.logger.With(logger.String("page_id", id))

	loop := worker.NewLoop(
		queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize)),
		worker.WithName("page-"+id),
		worker.WithLogger(log),
	)
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	loop.Start(loopCtx)

	n := notifier.New(els[IDMessage], loop, s.env,
		notifier.WithLifetime(s.lifetime),
		notifier.WithLogger(log))

	p := &Page{
		id:       id,
		doc:      doc,
		loop:     loop,
		notifier: n,
		loader: loader.New(
			loader.Handles{Document: doc, List: els[IDActivitiesList], Select: els[IDActivity]},
			api, loop, s.env,
			loader.WithLogger(log.Named("loader")),
			loader.WithLocale(s.locale)),
		submitter: submitter.New(
			submitter.Handles{Form: els[IDSignupForm], Email: els[IDEmail], Activity: els[IDActivity]},
			api, n, loop, s.env,
			submitter.WithLogger(log.Named("submitter"))),
		cancel: cancel,
		logger: log,
	}
	log.Debug(ctx, "page opened")
	return p, nil
}

// ID identifies the page in logs.
func (p *Page) ID() string { return p.id }

// Ready runs the initial activity load. A failed load is rendered into the
// page; the error is returned for callers that want it.
func (p *Page) Ready(ctx context.Context) error {
	return p.check(p.loader.Load(ctx))
}

// Submit fills the form as a user would and submits it.
func (p *Page) Submit(ctx context.Context, email, activity string) error {
	err := p.loop.Do(ctx, "fill-signup-form", func(context.Context) {
		p.doc.GetElementByID(IDEmail).SetValue(email)
		p.doc.GetElementByID(IDActivity).SetValue(activity)
	})
	if err != nil {
		return p.check(err)
	}
	return p.check(p.submitter.Submit(ctx))
}

// Message returns the banner content and whether it is visible.
func (p *Page) Message(ctx context.Context) (model.StatusMessage, bool, error) {
	var (
		msg     model.StatusMessage
		visible bool
	)
	err := p.loop.Do(ctx, "read-message", func(context.Context) {
		msg, visible = p.notifier.Current()
	})
	return msg, visible, p.check(err)
}

// Inspect runs fn with the document on the loop.
func (p *Page) Inspect(ctx context.Context, fn func(doc *dom.Document)) error {
	return p.check(p.loop.Do(ctx, "inspect", func(context.Context) { fn(p.doc) }))
}

// Render writes the current document as HTML.
func (p *Page) Render(ctx context.Context, w io.Writer) error {
	var buf bytes.Buffer
	var renderErr error
	if err := p.loop.Do(ctx, "render", func(context.Context) {
		renderErr = p.doc.Render(&buf)
	}); err != nil {
		return p.check(err)
	}
	if renderErr != nil {
		return fmt.Errorf("render page: %w", renderErr)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Close drains pending loop tasks and stops the loop. Timers still armed
// find the page closed and do nothing.
func (p *Page) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		err = p.loop.Shutdown(ctx)
		p.cancel()
		p.logger.Debug(ctx, "page closed")
	})
	return err
}

func (p *Page) check(err error) error {
	if errors.Is(err, worker.ErrStopped) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}
