// Package submitter validates the signup form and posts it to the API.
package submitter

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/signupdesk/internal/adapters/http/apiclient"
	"github.com/okian/signupdesk/internal/dom"
	"github.com/okian/signupdesk/internal/domain/model"
	"github.com/okian/signupdesk/internal/env"
	"github.com/okian/signupdesk/pkg/logger"
	"github.com/okian/signupdesk/pkg/metrics"
)

// ErrRejected wraps a non-2xx signup response.
var ErrRejected = errors.New("signup rejected")

// Thread runs document work on the page's event loop.
type Thread interface {
	Do(ctx context.Context, name string, fn func(ctx context.Context)) error
}

// Signer posts a signup.
type Signer interface {
	Signup(ctx context.Context, activity, email string) (model.SignupResult, error)
}

// Notifier displays the outcome. Show is called on the event loop.
type Notifier interface {
	Show(text string, category model.Category)
}

// Handles are the form elements the submitter reads and resets.
type Handles struct {
	Form     *dom.Element
	Email    *dom.Element
	Activity *dom.Element
}

// Submitter handles one form submission per Submit call.
type Submitter struct {
	h        Handles
	api      Signer
	notifier Notifier
	thread   Thread
	env      env.Environment
	logger   logger.Logger
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Submitter) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a submitter.
func New(h Handles, api Signer, n Notifier, thread Thread, e env.Environment, opts ...Option) *Submitter {
	s := &Submitter{
		h:        h,
		api:      api,
		notifier: n,
		thread:   thread,
		env:      e,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit reads the form, validates it and posts the signup. Every path ends
// with one message in the banner. The form is reset only on a 2xx response.
//
// The returned error is the validation error, the transport error, or
// ErrRejected for a non-2xx response.
func (s *Submitter) Submit(ctx context.Context) error {
	var req model.SignupRequest
	if err := s.thread.Do(ctx, "read-signup-form", func(context.Context) {
		req = model.SignupRequest{
			Email:    s.h.Email.Value(),
			Activity: s.h.Activity.Value(),
		}
	}); err != nil {
		return fmt.Errorf("read form: %w", err)
	}

	if err := req.Validate(); err != nil {
		metrics.RecordValidationFailure(validationReason(err))
		if derr := s.show(ctx, model.StatusMessage{Text: err.Error(), Category: model.CategoryError}, false); derr != nil {
			return derr
		}
		return err
	}

	res, err := s.api.Signup(ctx, req.Activity, req.Email)
	if err != nil {
		msg := s.failureMessage(ctx, err)
		if derr := s.show(ctx, msg, false); derr != nil {
			return derr
		}
		return err
	}

	if derr := s.show(ctx, res.Outcome(), res.OK()); derr != nil {
		return derr
	}
	if !res.OK() {
		s.logger.Debug(ctx, "signup rejected",
			logger.Int("status", res.StatusCode),
			logger.String("error_type", res.ErrorType))
		return fmt.Errorf("%w: status %d", ErrRejected, res.StatusCode)
	}
	s.logger.Info(ctx, "signed up", logger.String("activity", req.Activity))
	return nil
}

func (s *Submitter) show(ctx context.Context, msg model.StatusMessage, reset bool) error {
	err := s.thread.Do(ctx, "show-signup-result", func(context.Context) {
		s.notifier.Show(msg.Text, msg.Category)
		if reset {
			s.h.Form.Reset()
		}
	})
	if err != nil {
		return fmt.Errorf("show signup result: %w", err)
	}
	return nil
}

func (s *Submitter) failureMessage(ctx context.Context, err error) model.StatusMessage {
	switch apiclient.Classify(err, s.env) {
	case apiclient.FailureTimeout:
		return model.StatusMessage{Text: model.MsgTimedOut, Category: model.CategoryError}
	case apiclient.FailureOffline:
		return model.StatusMessage{Text: model.MsgOffline, Category: model.CategoryError}
	default:
		s.logger.Error(ctx, "error signing up", logger.Error(err))
		return model.StatusMessage{Text: model.MsgSignupFailed, Category: model.CategoryError}
	}
}

func validationReason(err error) string {
	if errors.Is(err, model.ErrInvalidEmail) {
		return "invalid_email"
	}
	return "missing_fields"
}
