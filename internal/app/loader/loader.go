// Package loader fetches the activity catalog and renders it into the page.
package loader

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/okian/signupdesk/internal/adapters/http/apiclient"
	"github.com/okian/signupdesk/internal/dom"
	"github.com/okian/signupdesk/internal/domain/model"
	"github.com/okian/signupdesk/internal/env"
	"github.com/okian/signupdesk/internal/sanitize"
	"github.com/okian/signupdesk/pkg/logger"
	"github.com/okian/signupdesk/pkg/metrics"
)

// PlaceholderOption is the first entry of the activity select.
const PlaceholderOption = `<option value="">-- Select an activity --</option>`

// Thread runs document work on the page's event loop.
type Thread interface {
	Do(ctx context.Context, name string, fn func(ctx context.Context)) error
}

// Catalog fetches activities.
type Catalog interface {
	FetchActivities(ctx context.Context) (model.Catalog, error)
}

// Handles are the elements the loader writes to.
type Handles struct {
	Document *dom.Document
	List     *dom.Element
	Select   *dom.Element
}

// Loader renders one catalog per Load call.
type Loader struct {
	h       Handles
	api     Catalog
	thread  Thread
	env     env.Environment
	printer *message.Printer
	logger  logger.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithLocale sets the language used to format spot counts.
func WithLocale(tag language.Tag) Option {
	return func(ld *Loader) {
		ld.printer = message.NewPrinter(tag)
	}
}

// New creates a loader.
func New(h Handles, api Catalog, thread Thread, e env.Environment, opts ...Option) *Loader {
	ld := &Loader{
		h:       h,
		api:     api,
		thread:  thread,
		env:     e,
		printer: message.NewPrinter(language.English),
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Load fetches the catalog and replaces the list and select contents. A
// failed fetch leaves one placeholder paragraph in the list and returns
// the fetch error.
func (ld *Loader) Load(ctx context.Context) error {
	catalog, err := ld.api.FetchActivities(ctx)
	if err != nil {
		failure := apiclient.Classify(err, ld.env)
		if failure == apiclient.FailureGeneric {
			ld.logger.Error(ctx, "error fetching activities", logger.Error(err))
		}
		if derr := ld.thread.Do(ctx, "render-load-failure", func(context.Context) {
			ld.renderFailure(failure)
		}); derr != nil {
			return fmt.Errorf("render load failure: %w", derr)
		}
		return err
	}

	var renderErr error
	if derr := ld.thread.Do(ctx, "render-activities", func(context.Context) {
		renderErr = ld.render(catalog)
	}); derr != nil {
		return fmt.Errorf("render activities: %w", derr)
	}
	if renderErr != nil {
		ld.logger.Error(ctx, "error rendering activities", logger.Error(renderErr))
		return renderErr
	}
	metrics.UpdateActivitiesRendered(catalog.Len())
	ld.logger.Debug(ctx, "activities rendered",
		logger.Int("count", catalog.Len()),
		logger.Any("names", catalog.Names()))
	return nil
}

func (ld *Loader) render(catalog model.Catalog) error {
	if err := ld.h.List.SetInnerHTML(""); err != nil {
		return err
	}
	if err := ld.h.Select.SetInnerHTML(PlaceholderOption); err != nil {
		return err
	}
	for _, a := range catalog {
		card := ld.h.Document.CreateElement("div")
		card.SetClassName("activity-card")
		if err := card.SetInnerHTML(ld.cardMarkup(a)); err != nil {
			ld.renderFailure(apiclient.FailureGeneric)
			return fmt.Errorf("activity %q: %w", a.Name, err)
		}
		ld.h.List.AppendChild(card)

		option := ld.h.Document.CreateElement("option")
		option.SetAttr("value", a.Name)
		option.SetTextContent(a.Name)
		ld.h.Select.AppendChild(option)
	}
	return nil
}

func (ld *Loader) renderFailure(f apiclient.Failure) {
	text := model.MsgLoadFailed
	switch f {
	case apiclient.FailureTimeout:
		text = model.MsgTimedOut
	case apiclient.FailureOffline:
		text = model.MsgOffline
	}
	// The text is a fixed constant.
	_ = ld.h.List.SetInnerHTML("<p>" + text + "</p>")
}

func (ld *Loader) cardMarkup(a model.Activity) string {
	name := sanitize.Text(a.Name)
	var b strings.Builder
	fmt.Fprintf(&b, "<h4>%s</h4>", name)
	fmt.Fprintf(&b, "<p>%s</p>", sanitize.Text(a.Description))
	fmt.Fprintf(&b, "<p><strong>Schedule:</strong> %s</p>", sanitize.Text(a.Schedule))
	fmt.Fprintf(&b, "<p><strong>Availability:</strong> %s spots left</p>", ld.printer.Sprintf("%d", a.SpotsLeft()))

	if len(a.Participants) == 0 {
		b.WriteString(`<div class="participants-section no-participants"><em>No participants yet.</em></div>`)
		return b.String()
	}
	b.WriteString(`<div class="participants-section"><strong>Participants:</strong><ul class="participants-list">`)
	for _, p := range a.Participants {
		email := sanitize.Text(p)
		fmt.Fprintf(&b,
			`<li>%s <button class="unregister-btn" data-activity="%s" data-email="%s" title="Unregister %s">Unregister</button></li>`,
			email, name, email, email)
	}
	b.WriteString(`</ul></div>`)
	return b.String()
}
