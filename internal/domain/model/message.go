package model

import "net/http"

// Category is the severity marker of a status message. Its value is used
// as the banner's class attribute.
type Category string

const (
	CategoryInfo    Category = "info"
	CategorySuccess Category = "success"
	CategoryError   Category = "error"
)

// StatusMessage is the single live banner message.
type StatusMessage struct {
	Text     string
	Category Category
}

// Error-classification header values sent with 409 responses.
const (
	ErrorTypeActivityFull      = "activity_full"
	ErrorTypeAlreadyRegistered = "already_registered"
)

// Fixed user messages for signup responses.
const (
	MsgSignedUp          = "Signed up successfully."
	MsgActivityFull      = "This activity is full. Please choose another."
	MsgAlreadyRegistered = "You are already registered for this activity."
	MsgConflict          = "A conflict occurred."
	MsgInvalidInput      = "Invalid input."
	MsgTooManyRequests   = "Too many requests. Please try again later."
	MsgGenericError      = "An error occurred"
)

// SignupResult is the decoded response to POST /activities/{name}/signup.
type SignupResult struct {
	StatusCode int
	ErrorType  string // X-Error-Type header, may be empty
	Message    string // success body
	Detail     string // error body
}

// OK reports a 2xx status.
func (r SignupResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Outcome maps the response to the message the user sees. The status code
// is authoritative; the header and body only refine error text.
func (r SignupResult) Outcome() StatusMessage {
	if r.OK() {
		text := r.Message
		if text == "" {
			text = MsgSignedUp
		}
		return StatusMessage{Text: text, Category: CategorySuccess}
	}
	switch r.StatusCode {
	case http.StatusConflict:
		switch r.ErrorType {
		case ErrorTypeActivityFull:
			return errorMessage(MsgActivityFull)
		case ErrorTypeAlreadyRegistered:
			return errorMessage(MsgAlreadyRegistered)
		}
		return errorMessage(r.detailOr(MsgConflict))
	case http.StatusUnprocessableEntity:
		return errorMessage(r.detailOr(MsgInvalidInput))
	case http.StatusTooManyRequests:
		return errorMessage(r.detailOr(MsgTooManyRequests))
	default:
		return errorMessage(r.detailOr(MsgGenericError))
	}
}

func (r SignupResult) detailOr(fallback string) string {
	if r.Detail != "" {
		return r.Detail
	}
	return fallback
}

func errorMessage(text string) StatusMessage {
	return StatusMessage{Text: text, Category: CategoryError}
}

// Transport failure messages. The load variants are rendered into the
// activities list, the signup variants into the banner.
const (
	MsgTimedOut     = "Request timed out. Please check your connection and try again."
	MsgOffline      = "You appear to be offline. Please check your internet connection."
	MsgLoadFailed   = "Failed to load activities. Please try again later."
	MsgSignupFailed = "Failed to sign up. Please try again."
)
