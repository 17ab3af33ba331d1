package submitter_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/signupdesk/internal/adapters/http/apiclient"
	queue "github.com/okian/signupdesk/internal/adapters/mq/queue"
	worker "github.com/okian/signupdesk/internal/adapters/mq/worker"
	"github.com/okian/signupdesk/internal/app/submitter"
	"github.com/okian/signupdesk/internal/dom"
	"github.com/okian/signupdesk/internal/domain/model"
	"github.com/okian/signupdesk/internal/env/envtest"
	"github.com/okian/signupdesk/pkg/logger/loggertest"
)

const page = `<html><body>
<form id="signup-form">
<input type="email" id="email" name="email">
<select id="activity" name="activity"><option value="">-- Select an activity --</option><option value="Chess">Chess</option></select>
</form>
</body></html>`

type call struct{ activity, email string }

type stubSigner struct {
	result model.SignupResult
	err    error
	calls  []call
}

func (s *stubSigner) Signup(_ context.Context, activity, email string) (model.SignupResult, error) {
	s.calls = append(s.calls, call{activity, email})
	return s.result, s.err
}

type recordingNotifier struct {
	shown []model.StatusMessage
}

func (n *recordingNotifier) Show(text string, c model.Category) {
	n.shown = append(n.shown, model.StatusMessage{Text: text, Category: c})
}

type fixture struct {
	ctx      context.Context
	loop     *worker.Loop
	email    *dom.Element
	activity *dom.Element
	clock    *envtest.Fake
	logs     *loggertest.Recorder
	api      *stubSigner
	notes    *recordingNotifier
	sub      *submitter.Submitter
}

func newFixture() (*fixture, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := worker.NewLoop(queue.NewInMemoryQueue())
	loop.Start(ctx)

	doc, err := dom.ParseString(page)
	convey.So(err, convey.ShouldBeNil)
	f := &fixture{
		ctx:      ctx,
		loop:     loop,
		email:    doc.GetElementByID("email"),
		activity: doc.GetElementByID("activity"),
		clock:    envtest.New(),
		logs:     loggertest.NewRecorder(),
		api:      &stubSigner{},
		notes:    &recordingNotifier{},
	}
	h := submitter.Handles{Form: doc.GetElementByID("signup-form"), Email: f.email, Activity: f.activity}
	f.sub = submitter.New(h, f.api, f.notes, loop, f.clock, submitter.WithLogger(f.logs.Logger()))
	return f, cancel
}

func (f *fixture) fill(email, activity string) {
	convey.So(f.loop.Do(f.ctx, "fill", func(context.Context) {
		f.email.SetValue(email)
		f.activity.SetValue(activity)
	}), convey.ShouldBeNil)
}

func (f *fixture) last() model.StatusMessage {
	convey.So(f.notes.shown, convey.ShouldHaveLength, 1)
	return f.notes.shown[0]
}

func TestSubmitter_Validation(t *testing.T) {
	convey.Convey("Given a signup form", t, func() {
		f, cancel := newFixture()
		defer cancel()

		convey.Convey("When the email is empty and an activity is selected", func() {
			f.fill("", "Chess")
			err := f.sub.Submit(f.ctx)

			convey.Convey("Then the presence message is shown and nothing is sent", func() {
				convey.So(errors.Is(err, model.ErrMissingFields), convey.ShouldBeTrue)
				convey.So(f.last(), convey.ShouldResemble, model.StatusMessage{Text: "Please fill out all fields.", Category: model.CategoryError})
				convey.So(f.api.calls, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When no activity is selected", func() {
			f.fill("a@x.com", "")
			err := f.sub.Submit(f.ctx)

			convey.Convey("Then the presence message is shown", func() {
				convey.So(errors.Is(err, model.ErrMissingFields), convey.ShouldBeTrue)
				convey.So(f.api.calls, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the email is malformed", func() {
			f.fill("not-an-email", "Chess")
			err := f.sub.Submit(f.ctx)

			convey.Convey("Then the format message is shown and nothing is sent", func() {
				convey.So(errors.Is(err, model.ErrInvalidEmail), convey.ShouldBeTrue)
				convey.So(f.last().Text, convey.ShouldEqual, "Please enter a valid email address.")
				convey.So(f.api.calls, convey.ShouldBeEmpty)
			})
		})
	})
}

func TestSubmitter_Responses(t *testing.T) {
	convey.Convey("Given a valid form", t, func() {
		f, cancel := newFixture()
		defer cancel()
		f.fill("a@x.com", "Chess")

		formValues := func() (email, activity string) {
			_ = f.loop.Do(f.ctx, "read", func(context.Context) {
				email, activity = f.email.Value(), f.activity.Value()
			})
			return email, activity
		}

		convey.Convey("When the server accepts the signup", func() {
			f.api.result = model.SignupResult{StatusCode: http.StatusOK, Message: "Signed up a@x.com for Chess"}
			err := f.sub.Submit(f.ctx)

			convey.Convey("Then the server message is shown and the form resets", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(f.api.calls, convey.ShouldResemble, []call{{"Chess", "a@x.com"}})
				convey.So(f.last(), convey.ShouldResemble, model.StatusMessage{Text: "Signed up a@x.com for Chess", Category: model.CategorySuccess})
				email, activity := formValues()
				convey.So(email, convey.ShouldBeEmpty)
				convey.So(activity, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the server reports an existing registration", func() {
			f.api.result = model.SignupResult{
				StatusCode: http.StatusConflict,
				ErrorType:  model.ErrorTypeAlreadyRegistered,
				Detail:     "Student already signed up",
			}
			err := f.sub.Submit(f.ctx)

			convey.Convey("Then the fixed message is shown and the form is kept", func() {
				convey.So(errors.Is(err, submitter.ErrRejected), convey.ShouldBeTrue)
				convey.So(f.last().Text, convey.ShouldEqual, "You are already registered for this activity.")
				convey.So(f.last().Category, convey.ShouldEqual, model.CategoryError)
				email, activity := formValues()
				convey.So(email, convey.ShouldEqual, "a@x.com")
				convey.So(activity, convey.ShouldEqual, "Chess")
			})
		})

		convey.Convey("When the server rate limits without a detail", func() {
			f.api.result = model.SignupResult{StatusCode: http.StatusTooManyRequests}
			_ = f.sub.Submit(f.ctx)

			convey.Convey("Then the fallback text is shown", func() {
				convey.So(f.last().Text, convey.ShouldEqual, model.MsgTooManyRequests)
			})
		})
	})
}

func TestSubmitter_TransportFailures(t *testing.T) {
	convey.Convey("Given a valid form", t, func() {
		f, cancel := newFixture()
		defer cancel()
		f.fill("a@x.com", "Chess")

		convey.Convey("When the request times out", func() {
			f.api.err = fmt.Errorf("signup: %w", apiclient.ErrTimeout)
			err := f.sub.Submit(f.ctx)

			convey.Convey("Then the timeout message is shown", func() {
				convey.So(errors.Is(err, apiclient.ErrTimeout), convey.ShouldBeTrue)
				convey.So(f.last().Text, convey.ShouldEqual, model.MsgTimedOut)
				convey.So(f.logs.Errors(), convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the host is offline", func() {
			f.clock.SetOnline(false)
			f.api.err = errors.New("connection refused")
			_ = f.sub.Submit(f.ctx)

			convey.Convey("Then the offline message is shown", func() {
				convey.So(f.last().Text, convey.ShouldEqual, model.MsgOffline)
			})
		})

		convey.Convey("When the request fails otherwise", func() {
			f.api.err = errors.New("connection reset")
			_ = f.sub.Submit(f.ctx)

			convey.Convey("Then the generic message is shown and the error logged", func() {
				convey.So(f.last().Text, convey.ShouldEqual, model.MsgSignupFailed)
				convey.So(f.logs.Errors(), convey.ShouldHaveLength, 1)
			})
		})
	})
}
