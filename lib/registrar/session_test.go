package registrar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
	"utregister/lib/registrar/cookies"
	"utregister/lib/registrar/nonce"
	"utregister/lib/registrar/term"
	"utregister/lib/telemetry"
	"utregister/lib/timezone"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
	Cookie string
	Type   string
}

// fakeRegistrar serves a fresh nonce on every page it renders.
type fakeRegistrar struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recordedRequest
	counter  int
	// path -> page body, %s is replaced by the nonce input
	pages map[string]string
	// path -> handler that overrides the page
	handlers map[string]http.HandlerFunc
	// set on every response
	setCookies []string
}

func newFakeRegistrar(t *testing.T) (*fakeRegistrar, *httptest.Server) {
	f := &fakeRegistrar{
		t:        t,
		pages:    map[string]string{},
		handlers: map[string]http.HandlerFunc{},
	}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeRegistrar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		f.t.Error(err)
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   strings.TrimPrefix(r.URL.Path, "/"),
		Query:  r.URL.RawQuery,
		Body:   string(body),
		Cookie: r.Header.Get("cookie"),
		Type:   r.Header.Get("content-type"),
	})
	f.counter++
	id := f.counter
	handler := f.handlers[strings.TrimPrefix(r.URL.Path, "/")]
	page, ok := f.pages[strings.TrimPrefix(r.URL.Path, "/")]
	setCookies := f.setCookies
	f.mu.Unlock()

	if handler != nil {
		handler(w, r)
		return
	}
	for _, c := range setCookies {
		w.Header().Add("set-cookie", c)
	}
	if !ok {
		page = "<html><body><form>%s</form></body></html>"
	}
	if strings.Contains(page, "%s") {
		page = fmt.Sprintf(page, fmt.Sprintf(`<input type="hidden" name="s_nonce" value="N%d">`, id))
	}
	w.Header().Set("content-type", "text/html")
	_, _ = w.Write([]byte(page))
}

func (f *fakeRegistrar) hits() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newTestSession(t *testing.T, server *httptest.Server, opts Options) *Session {
	cleanup := telemetry.SetupForTesting(t, "test:lib/registrar")
	t.Cleanup(cleanup)

	opts.Term = term.Term{Year: 2023, Semester: term.Fall}
	opts.BaseUrl = server.URL + "/"
	session, err := NewSession(opts)
	if err != nil {
		t.Fatal(err)
	}
	return session
}

func TestAddWithEmptyPoolIssuesNoRequest(t *testing.T) {
	fake, server := newFakeRegistrar(t)
	session := newTestSession(t, server, Options{})

	_, err := session.AddCourse(context.Background(), "12345")
	require.ErrorIs(t, err, nonce.ErrNonceExhausted)
	require.Empty(t, fake.hits())
}

func TestBuildRequestManagedParamsWin(t *testing.T) {
	_, server := newFakeRegistrar(t)
	session := newTestSession(t, server, Options{StudentEid: "abc123"})
	session.Pool.Push("fresh")

	req, err := session.buildRequest(RequestSpec{
		Code:     CodeAdd,
		Mode:     ParamsInBody,
		Endpoint: EndpointRegistration,
		Params: map[string]string{
			"s_nonce":      "stale",
			"s_request":    "STDRP",
			"s_unique_add": "123 45&x=y",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, http.MethodPost, req.method)
	require.Equal(t, EndpointRegistration, req.url())
	require.Equal(
		t,
		"s_unique_add=123%2045%26x%3Dy&s_ccyys=20239&s_nonce=fresh&s_request=STADD&s_student_eid=abc123",
		req.body(),
	)

	values, err := url.ParseQuery(req.body())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []string{"fresh"}, values["s_nonce"])
	require.Equal(t, []string{"STADD"}, values["s_request"])
	require.Equal(t, 0, session.Pool.Len())
}

func TestEncodeComponent(t *testing.T) {
	cases := []struct {
		text     string
		expected string
	}{
		{text: "123 45", expected: "123%2045"},
		{text: "a+b&c=d", expected: "a%2Bb%26c%3Dd"},
		{text: "-_.!~*'()", expected: "-_.!~*'()"},
		{text: "%21/?#", expected: "%2521%2F%3F%23"},
		{text: "é", expected: "%C3%A9"},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, encodeComponent(test.text), test.text)
	}
}

func TestBuildRequestQueryMode(t *testing.T) {
	_, server := newFakeRegistrar(t)
	session := newTestSession(t, server, Options{})
	session.Pool.Push("n1")

	req, err := session.buildRequest(RequestSpec{
		Code:     CodeSearch,
		Method:   http.MethodGet,
		Mode:     ParamsInQuery,
		Endpoint: EndpointSearch,
		Params:   map[string]string{"s_unique_search": "12345"},
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "", req.body())
	require.Equal(
		t,
		EndpointSearch+"?s_unique_search=12345&s_ccyys=20239&s_nonce=n1&s_request=STGOF&s_student_eid=",
		req.url(),
	)
}

func TestActionsSendNonceAndCookies(t *testing.T) {
	fake, server := newFakeRegistrar(t)
	fake.setCookies = []string{"SC=session-1; Path=/; Secure", "utlogin-prod=token; HttpOnly"}
	fake.pages[EndpointRegistration] = `<html><body>%s<span class="success">Added 12345.</span></body></html>`

	session := newTestSession(t, server, Options{
		Jar: cookies.NewJar([]cookies.Cookie{{Name: "SC", Value: "initial"}}, nil),
	})
	session.Pool.Push("seed")

	result, err := session.AddCourse(context.Background(), "12345")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, ActionResult{Code: CodeAdd, Message: "Added 12345."}, result)

	// the nonce of the response is ready for the next action
	require.Equal(t, 1, session.Pool.Len())
	value, _ := session.Jar.Get("SC")
	require.Equal(t, "session-1", value)

	_, err = session.DropCourse(context.Background(), "67890")
	if err != nil {
		t.Fatal(err)
	}

	hits := fake.hits()
	require.Len(t, hits, 2)

	require.Equal(t, http.MethodPost, hits[0].Method)
	require.Equal(t, EndpointRegistration, hits[0].Path)
	require.Equal(t, "application/x-www-form-urlencoded", hits[0].Type)
	require.Equal(t, "SC=initial", hits[0].Cookie)
	require.Equal(t, "s_unique_add=12345&s_ccyys=20239&s_nonce=seed&s_request=STADD&s_student_eid=", hits[0].Body)

	require.Equal(t, "SC=session-1; utlogin-prod=token", hits[1].Cookie)
	require.Equal(t, "s_unique_drop=67890&s_ccyys=20239&s_nonce=N1&s_request=STDRP&s_student_eid=", hits[1].Body)
	require.Equal(t, 2, session.Pool.Used())
}

func TestActionParams(t *testing.T) {
	fake, server := newFakeRegistrar(t)
	session := newTestSession(t, server, Options{})
	ctx := context.Background()

	testCases := []struct {
		name     string
		action   func() (ActionResult, error)
		endpoint string
		params   url.Values
	}{
		{
			name:     "begin",
			action:   func() (ActionResult, error) { return session.BeginRegistration(ctx) },
			endpoint: EndpointRegistration,
			params:   url.Values{"s_request": {"STGAR"}},
		},
		{
			name:     "swap",
			action:   func() (ActionResult, error) { return session.SwapCourse(ctx, "11111", "22222") },
			endpoint: EndpointRegistration,
			params: url.Values{
				"s_request":          {"STSWP"},
				"s_swap_unique_drop": {"11111"},
				"s_swap_unique_add":  {"22222"},
			},
		},
		{
			name:     "waitlist",
			action:   func() (ActionResult, error) { return session.JoinWaitlist(ctx, "33333", "11111") },
			endpoint: EndpointRegistration,
			params: url.Values{
				"s_request":    {"STAWL"},
				"s_unique_add": {"33333"},
				"s_af_unique":  {"11111"},
			},
		},
		{
			name:     "grading basis",
			action:   func() (ActionResult, error) { return session.ToggleGradingBasis(ctx, "44444") },
			endpoint: EndpointRegistration,
			params: url.Values{
				"s_request": {"STCPF"},
				"s_unique":  {"44444"},
			},
		},
		{
			name:     "acknowledge",
			action:   func() (ActionResult, error) { return session.Acknowledge(ctx) },
			endpoint: EndpointAcknowledge,
			params: url.Values{
				"s_request":     {"STUOF"},
				"ack_sw":        {"Y"},
				"ack_degr_plan": {"Y"},
			},
		},
	}

	for i, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			session.Pool.Push(fmt.Sprintf("nonce-%d", i))
			_, err := test.action()
			if err != nil {
				t.Fatal(err)
			}

			hits := fake.hits()
			last := hits[len(hits)-1]
			require.Equal(t, test.endpoint, last.Path)

			values, err := url.ParseQuery(last.Body)
			if err != nil {
				t.Fatal(err)
			}
			for key, expected := range test.params {
				require.Equal(t, expected, values[key], key)
			}
			require.Equal(t, []string{"20239"}, values["s_ccyys"])
		})
	}
}

func TestServerRejection(t *testing.T) {
	fake, server := newFakeRegistrar(t)
	fake.pages[EndpointRegistration] = `<html><body>%s
		<p><span class="error">Add failed:</span> the class is full.</p>
	</body></html>`
	fake.pages[EndpointSearch] = `<html><body>%s
		<p>Search: <span class="error">The unique number 99999 does not exist.</span></p>
	</body></html>`

	session := newTestSession(t, server, Options{})
	session.Pool.Push("a")
	session.Pool.Push("b")

	_, err := session.AddCourse(context.Background(), "12345")
	var rejection *ServerRejection
	require.ErrorAs(t, err, &rejection)
	require.Equal(t, "Add failed: the class is full.", rejection.Message)

	_, err = session.SearchSection(context.Background(), "99999")
	require.ErrorAs(t, err, &rejection)
	require.Equal(t, "The unique number 99999 does not exist.", rejection.Message)

	// both rejected pages still carried a nonce
	require.Equal(t, 2, session.Pool.Len())
}

func TestErrorMessageFallback(t *testing.T) {
	testCases := []struct {
		name     string
		page     string
		prefer   messageSource
		expected string
	}{
		{
			name:     "no marker",
			page:     `<p>all good</p>`,
			prefer:   fromMarker,
			expected: "",
		},
		{
			name:     "empty marker falls back to parent",
			page:     `<p><span class="error"></span>Registration is closed.</p>`,
			prefer:   fromMarker,
			expected: "Registration is closed.",
		},
		{
			name:     "parent preferred",
			page:     `<div>Error: <span class="error">time conflict</span></div>`,
			prefer:   fromParent,
			expected: "Error: time conflict",
		},
		{
			name:     "marker preferred",
			page:     `<div>Error: <span class="error">time conflict</span></div>`,
			prefer:   fromMarker,
			expected: "time conflict",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			doc := mustParse(t, test.page)
			require.Equal(t, test.expected, errorMessage(doc, test.prefer))
		})
	}
}

func TestRedirectIsTransportError(t *testing.T) {
	fake, server := newFakeRegistrar(t)
	fake.handlers[EndpointRegistration] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("location", "https://login.utexas.edu/login/UI/Login")
		w.WriteHeader(http.StatusFound)
	}
	fake.handlers[EndpointClassList] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}

	session := newTestSession(t, server, Options{})
	session.Pool.Push("n")

	_, err := session.AddCourse(context.Background(), "12345")
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, http.StatusFound, transportErr.Status)
	require.True(t, transportErr.IsLoginRedirect())
	// the redirect was not followed
	require.Len(t, fake.hits(), 1)

	_, err = session.ClassListing(context.Background())
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, http.StatusInternalServerError, transportErr.Status)
	require.False(t, transportErr.IsLoginRedirect())
}

func TestCollectNonce(t *testing.T) {
	fake, server := newFakeRegistrar(t)
	session := newTestSession(t, server, Options{MaxNonceCount: 5})

	err := session.CollectNonce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, session.Pool.Len())

	err = session.CollectMaxNonces(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 5, session.Pool.Len())
	require.Len(t, fake.hits(), 5)
	for _, hit := range fake.hits() {
		require.Equal(t, http.MethodGet, hit.Method)
		require.Equal(t, EndpointChooseSemester, hit.Path)
	}

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		n, err := session.Pool.Take()
		if err != nil {
			t.Fatal(err)
		}
		require.False(t, seen[n], n)
		seen[n] = true
	}

	// a full pool needs no fetches
	session.Pool.Push("x")
	session.Pool.Push("y")
	session.Pool.Push("z")
	session.Pool.Push("w")
	session.Pool.Push("v")
	require.NoError(t, session.CollectMaxNonces(context.Background()))
	require.Len(t, fake.hits(), 5)
}

func TestCollectNonceStalled(t *testing.T) {
	fake, server := newFakeRegistrar(t)
	fake.pages[EndpointChooseSemester] = `<html><body>Choose a semester</body></html>`
	session := newTestSession(t, server, Options{MaxNonceCount: 3})

	err := session.CollectNonce(context.Background())
	require.ErrorIs(t, err, ErrNonceCollectionStalled)

	err = session.CollectMaxNonces(context.Background())
	require.ErrorIs(t, err, ErrNonceCollectionStalled)
	require.Equal(t, 0, session.Pool.Len())
}

func TestCollectMaxNoncesPartialFailure(t *testing.T) {
	fake, server := newFakeRegistrar(t)
	var count int
	var mu sync.Mutex
	fake.handlers[EndpointChooseSemester] = func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		id := count
		mu.Unlock()
		if id%2 == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, `<input type="hidden" name="s_nonce" value="ok-%d">`, id)
	}
	session := newTestSession(t, server, Options{MaxNonceCount: 4})

	err := session.CollectMaxNonces(context.Background())
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, http.StatusServiceUnavailable, transportErr.Status)
	require.Equal(t, 2, session.Pool.Len())
}

const searchPage = `<html><body>%s
<table>
	<tr><th id="u">Unique</th><th id="d">Days</th><th id="h">Hour</th></tr>
	<tr><td headers="u">12345</td><td headers="d">MWF</td><td headers="h">10:00 AM</td></tr>
	<tr><td headers="d">T</td><td headers="h">5:00 PM</td></tr>
</table>
</body></html>`

func TestSearchSection(t *testing.T) {
	fake, server := newFakeRegistrar(t)
	fake.pages[EndpointSearch] = searchPage
	session := newTestSession(t, server, Options{})
	session.Pool.Push("n0")

	sections, err := session.SearchSection(context.Background(), "12345")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []string{"12345"}, sections.Keys)
	require.Len(t, sections.Get("12345"), 2)

	hit := fake.hits()[0]
	require.Equal(t, http.MethodGet, hit.Method)
	require.Equal(t, "", hit.Body)
	require.Equal(t, "s_unique_search=12345&s_ccyys=20239&s_nonce=n0&s_request=STGOF&s_student_eid=", hit.Query)
}

func TestClassListing(t *testing.T) {
	fake, server := newFakeRegistrar(t)
	fake.pages[EndpointClassList] = `<html><body>%s
	<table>
		<tr><th>Unique</th><th>Course</th></tr>
		<tr><td>12345</td><td>C S 439</td></tr>
	</table></body></html>`
	session := newTestSession(t, server, Options{})

	rows, err := session.ClassListing(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, rows, 1)
	course, _ := rows[0].Get("Course")
	require.Equal(t, "C S 439", course)

	// read only pages consume no nonce but still provide one
	require.Equal(t, "", fake.hits()[0].Query)
	require.Equal(t, 1, session.Pool.Len())
	require.Equal(t, 0, session.Pool.Used())
}

const risPage = `<html><body>%s
<table id="ris_times">
	<tr><td>Registration:</td><td>AUG 1, 8:00 AM - 5:00 PM<br>AUG 2-3, 9-11 AM</td></tr>
	<tr><td>Waitlist:</td><td>%s</td></tr>
</table>
<table id="ris_bars">
	<tr><th>Bar</th><th>Office</th></tr>
	<tr><td>Advising</td><td>Natural Sciences</td></tr>
</table>
</body></html>`

func TestRegistrationTimes(t *testing.T) {
	fake, server := newFakeRegistrar(t)
	fake.handlers[EndpointRIS] = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, risPage, `<input type="hidden" name="s_nonce" value="ris">`, "not a span")
	}
	session := newTestSession(t, server, Options{})

	_, err := session.RegistrationTimes(context.Background(), false)
	require.Error(t, err)

	registration, err := session.RegistrationTimes(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}

	at := func(day, hour int) time.Time {
		return time.Date(2023, time.August, day, hour, 0, 0, 0, timezone.Location)
	}
	expected := []struct{ Start, Stop time.Time }{
		{at(1, 8), at(1, 17)},
		{at(2, 9), at(2, 11)},
		{at(3, 9), at(3, 11)},
	}
	var actual []struct{ Start, Stop time.Time }
	for _, w := range registration.Windows {
		actual = append(actual, struct{ Start, Stop time.Time }{w.Start, w.Stop})
	}
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Fatal(diff)
	}

	require.Len(t, registration.Errors, 1)
	require.Equal(t, "not a span", registration.Errors[0].Span)
	require.Equal(t, []string{"Registration", "Waitlist"}, []string{registration.Access[0].Label, registration.Access[1].Label})
	require.Len(t, registration.Bars, 1)
	office, _ := registration.Bars[0].Get("Office")
	require.Equal(t, "Natural Sciences", office)
}

type memoryRecorder struct {
	attempts []Attempt
}

func (r *memoryRecorder) RecordAttempt(_ context.Context, attempt Attempt) error {
	r.attempts = append(r.attempts, attempt)
	return nil
}

func TestRecorder(t *testing.T) {
	fake, server := newFakeRegistrar(t)
	fake.pages[EndpointRegistration] = `<html><body>%s<span class="error">Closed</span></body></html>`
	recorder := &memoryRecorder{}
	session := newTestSession(t, server, Options{Recorder: recorder})
	session.Pool.Push("n")

	_, err := session.AddCourse(context.Background(), "12345")
	require.Error(t, err)
	_, err = session.AddCourse(context.Background(), "12345")
	require.Error(t, err)

	require.Len(t, recorder.attempts, 2)
	require.Equal(t, CodeAdd, recorder.attempts[0].Code)
	require.Equal(t, session.ID, recorder.attempts[0].Session)
	require.Equal(t, map[string]string{"s_unique_add": "12345"}, recorder.attempts[0].Params)

	var rejection *ServerRejection
	require.ErrorAs(t, recorder.attempts[0].Err, &rejection)
	// the second attempt used the nonce harvested from the rejected page
	require.NotErrorIs(t, recorder.attempts[1].Err, nonce.ErrNonceExhausted)
	require.Equal(t, term.Term{Year: 2023, Semester: term.Fall}, recorder.attempts[1].Term)

	session.SetRecorder(nil)
	_, err = session.AddCourse(context.Background(), "12345")
	require.Error(t, err)
	require.Len(t, recorder.attempts, 2)
}

func TestConfirmationMessageRecorded(t *testing.T) {
	fake, server := newFakeRegistrar(t)
	fake.pages[EndpointAcknowledge] = `<html><body>%s<span class="success">Notices accepted.</span></body></html>`
	recorder := &memoryRecorder{}
	session := newTestSession(t, server, Options{Recorder: recorder})
	session.Pool.Push("n")

	result, err := session.Acknowledge(context.Background())
	require.NoError(t, err)
	require.Equal(t, ActionResult{Code: CodeAcknowledge, Message: "Notices accepted."}, result)

	require.Len(t, recorder.attempts, 1)
	require.Equal(t, result.Message, recorder.attempts[0].Message)
	require.NoError(t, recorder.attempts[0].Err)
}

func TestLogin(t *testing.T) {
	_, server := newFakeRegistrar(t)

	var origin string
	session := newTestSession(t, server, Options{
		Jar: cookies.NewJar([]cookies.Cookie{{Name: "stale", Value: "1"}}, nil),
		Login: func(ctx context.Context, u *url.URL, current []cookies.Cookie) ([]cookies.Cookie, error) {
			origin = u.String()
			require.Equal(t, []cookies.Cookie{{Name: "stale", Value: "1"}}, current)
			return []cookies.Cookie{{Name: "SC", Value: "fresh"}}, nil
		},
	})

	err := session.Login(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, server.URL+"/", origin)
	require.Equal(t, []cookies.Cookie{{Name: "SC", Value: "fresh"}}, session.Jar.Cookies())

	failing := newTestSession(t, server, Options{
		Login: func(context.Context, *url.URL, []cookies.Cookie) ([]cookies.Cookie, error) {
			return nil, errors.New("duo timed out")
		},
	})
	require.EqualError(t, failing.Login(context.Background()), "duo timed out")

	noLogin := newTestSession(t, server, Options{})
	require.Error(t, noLogin.Login(context.Background()))
}

func TestNewSessionValidation(t *testing.T) {
	_, err := NewSession(Options{})
	require.Error(t, err)

	_, err = NewSession(Options{Term: term.Term{Year: 2023, Semester: "Winter"}})
	require.Error(t, err)

	session, err := NewSession(Options{Term: term.Term{Year: 2024, Semester: term.Spring}})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, DefaultBaseUrl, session.BaseUrl.String())
	require.Equal(t, nonce.DefaultMaxCount, session.Pool.MaxCount())
	require.Equal(t, 0, session.Jar.Len())

	other, err := NewSession(Options{Term: term.Term{Year: 2024, Semester: term.Spring}})
	if err != nil {
		t.Fatal(err)
	}
	require.NotEqual(t, session.ID, other.ID)
}
