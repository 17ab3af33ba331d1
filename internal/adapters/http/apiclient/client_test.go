package apiclient_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/signupdesk/internal/adapters/http/apiclient"
	"github.com/okian/signupdesk/internal/env/envtest"
)

const catalogJSON = `{
  "Zumba": {"description": "Dance", "schedule": "Mon", "max_participants": 5, "participants": []},
  "Chess": {"description": "Strategy", "schedule": "Fri", "max_participants": 10, "participants": ["a@x.com", "b@x.com"]},
  "Art":   {"description": "Paint", "schedule": "Thu", "max_participants": 1, "participants": ["c@x.com", "d@x.com"]}
}`

func newClient(t *testing.T, ts *httptest.Server, fake *envtest.Fake) *apiclient.Client {
	t.Helper()
	c, err := apiclient.New(ts.URL+"/",
		apiclient.WithEnvironment(fake),
		apiclient.WithHTTPClient(ts.Client()),
		apiclient.WithRequestIDs(func() string { return "req-1" }),
	)
	require.NoError(t, err)
	return c
}

func TestNewRejectsRelativeBase(t *testing.T) {
	_, err := apiclient.New("/api")
	assert.ErrorIs(t, err, apiclient.ErrBadBaseURL)
}

func TestFetchActivitiesKeepsOrder(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/activities", r.URL.Path)
		assert.Equal(t, "req-1", r.Header.Get(apiclient.HeaderRequestID))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogJSON))
	}))
	defer ts.Close()
	fake := envtest.New()

	catalog, err := newClient(t, ts, fake).FetchActivities(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Zumba", "Chess", "Art"}, catalog.Names())
	chess := catalog[1]
	assert.Equal(t, 8, chess.SpotsLeft())
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, chess.Participants)
	assert.Equal(t, -1, catalog[2].SpotsLeft())
	assert.Equal(t, 0, fake.Pending(), "the request timer must be stopped")
}

func TestFetchActivitiesDuplicateKeyReplacesInPlace(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"A": {"max_participants": 1}, "B": {}, "A": {"max_participants": 3}}`))
	}))
	defer ts.Close()

	catalog, err := newClient(t, ts, envtest.New()).FetchActivities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, catalog.Names())
	assert.Equal(t, 3, catalog[0].MaxParticipants)
}

func TestFetchActivitiesFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`, apiclient.ErrUnexpectedStatus},
		{"not an object", http.StatusOK, `[1,2]`, apiclient.ErrDecode},
		{"truncated", http.StatusOK, `{"A": {"description": "x"`, apiclient.ErrDecode},
		{"bad participants", http.StatusOK, `{"A": {"participants": [1]}}`, apiclient.ErrDecode},
		{"html", http.StatusOK, `<html></html>`, apiclient.ErrDecode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()
			fake := envtest.New()

			_, err := newClient(t, ts, fake).FetchActivities(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, apiclient.FailureGeneric, apiclient.Classify(err, fake))
		})
	}
}

func TestFetchActivitiesTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)
	fake := envtest.New()
	client := newClient(t, ts, fake)

	errCh := make(chan error, 1)
	go func() {
		_, err := client.FetchActivities(context.Background())
		errCh <- err
	}()

	require.True(t, fake.WaitForTimers(1, 2*time.Second))
	fake.Advance(6999 * time.Millisecond)
	select {
	case err := <-errCh:
		t.Fatalf("request ended before its deadline: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	fake.Advance(time.Millisecond)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, apiclient.ErrTimeout)
		fake.SetOnline(false)
		assert.Equal(t, apiclient.FailureTimeout, apiclient.Classify(err, fake), "timeout wins over offline")
	case <-time.After(5 * time.Second):
		t.Fatal("request was not cancelled by its timer")
	}
}

func TestTimersAreIndependent(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/activities" {
			select {
			case <-r.Context().Done():
			case <-release:
			}
			return
		}
		_, _ = w.Write([]byte(`{"message":"Signed up"}`))
	}))
	defer ts.Close()
	defer close(release)
	fake := envtest.New()
	client := newClient(t, ts, fake)

	loadErr := make(chan error, 1)
	go func() {
		_, err := client.FetchActivities(context.Background())
		loadErr <- err
	}()
	require.True(t, fake.WaitForTimers(1, 2*time.Second))

	res, err := client.Signup(context.Background(), "Chess", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Signed up", res.Message)
	assert.Equal(t, 1, fake.Pending(), "finishing the signup must not touch the load timer")

	fake.Advance(7 * time.Second)
	assert.ErrorIs(t, <-loadErr, apiclient.ErrTimeout)
}

func TestSignupRequestShape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/activities/Chess Club/signup", r.URL.Path)
		assert.Equal(t, "/activities/Chess%20Club/signup", r.URL.EscapedPath())
		assert.Equal(t, "a+b@x.com", r.URL.Query().Get("email"))
		_, _ = w.Write([]byte(`{"message":"Signed up a+b@x.com for Chess Club"}`))
	}))
	defer ts.Close()

	res, err := newClient(t, ts, envtest.New()).Signup(context.Background(), "Chess Club", "a+b@x.com")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "Signed up a+b@x.com for Chess Club", res.Message)
}

func TestSignupErrorResponses(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		errorType  string
		body       string
		wantDetail string
	}{
		{"already registered", 409, "already_registered", `{"detail":"Student already registered for this activity"}`, "Student already registered for this activity"},
		{"activity full", 409, "activity_full", `{"detail":"Activity is full"}`, "Activity is full"},
		{"validation list", 422, "", `{"detail":[{"msg":"field required"}]}`, ""},
		{"rate limited", 429, "", `{"detail":"Rate limit exceeded. Please try again later."}`, "Rate limit exceeded. Please try again later."},
		{"unreadable body", 502, "", `<html>bad gateway</html>`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.errorType != "" {
					w.Header().Set(apiclient.HeaderErrorType, tc.errorType)
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			res, err := newClient(t, ts, envtest.New()).Signup(context.Background(), "Chess", "a@x.com")
			require.NoError(t, err)
			assert.Equal(t, tc.status, res.StatusCode)
			assert.Equal(t, tc.errorType, res.ErrorType)
			assert.Equal(t, tc.wantDetail, res.Detail)
		})
	}
}

func TestSignupMalformedSuccessBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer ts.Close()

	_, err := newClient(t, ts, envtest.New()).Signup(context.Background(), "Chess", "a@x.com")
	assert.ErrorIs(t, err, apiclient.ErrDecode)
}

func TestSignupErrorBodyCutByTimeout(t *testing.T) {
	sent := make(chan struct{})
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(apiclient.HeaderErrorType, "already_registered")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"Student al`))
		w.(http.Flusher).Flush()
		close(sent)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)
	fake := envtest.New()
	client := newClient(t, ts, fake)

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Signup(context.Background(), "Chess", "a@x.com")
		errCh <- err
	}()

	require.True(t, fake.WaitForTimers(1, 2*time.Second))
	<-sent
	fake.Advance(7 * time.Second)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, apiclient.ErrTimeout)
		assert.Equal(t, apiclient.FailureTimeout, apiclient.Classify(err, fake))
	case <-time.After(5 * time.Second):
		t.Fatal("signup was not cancelled by its timer")
	}
}

func TestConnectionRefusedWhileOffline(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	fake := envtest.New()
	fake.SetOnline(false)
	client, err := apiclient.New("http://"+addr, apiclient.WithEnvironment(fake))
	require.NoError(t, err)

	_, err = client.Signup(context.Background(), "Chess", "a@x.com")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apiclient.ErrTimeout))
	assert.Equal(t, apiclient.FailureOffline, apiclient.Classify(err, fake))

	fake.SetOnline(true)
	assert.Equal(t, apiclient.FailureGeneric, apiclient.Classify(err, fake))
}

func TestFailureLabels(t *testing.T) {
	assert.Equal(t, "timeout", apiclient.FailureTimeout.String())
	assert.Equal(t, "offline", apiclient.FailureOffline.String())
	assert.Equal(t, "failed", apiclient.FailureGeneric.String())
}
