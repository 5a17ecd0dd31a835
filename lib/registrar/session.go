package registrar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
	"utregister/lib/registrar/cookies"
	"utregister/lib/registrar/nonce"
	"utregister/lib/registrar/term"
	"utregister/lib/restyutil"
	"utregister/lib/telemetry"
	"utregister/lib/timezone"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("utregister.lib.registrar")

const DefaultBaseUrl = "https://utdirect.utexas.edu/"

const (
	EndpointRegistration   = "registration/registration.WBX"
	EndpointSearch         = "registration/searchClasses.WBX"
	EndpointAcknowledge    = "registration/confirmEmailAddress.WBX"
	EndpointChooseSemester = "registration/chooseSemester.WBX"
	EndpointClassList      = "registration/classlist.WBX"
	EndpointRIS            = "registrar/ris.WBX"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// LoginFunc performs the interactive login against origin, starting from
// the cookies the session currently holds, and returns the authenticated
// cookie set.
type LoginFunc func(ctx context.Context, origin *url.URL, current []cookies.Cookie) ([]cookies.Cookie, error)

type Options struct {
	Term term.Term
	// defaults to DefaultBaseUrl
	BaseUrl string
	// non-positive values fall back to nonce.DefaultMinCount and nonce.DefaultMaxCount
	MinNonceCount int
	MaxNonceCount int
	// defaults to an empty jar that is never persisted
	Jar        *cookies.Jar
	StudentEid string
	// defaults to timezone.Location
	Location *time.Location
	// zero means no timeout
	Timeout          time.Duration
	CloudflareBypass bool
	UserAgent        string
	Login            LoginFunc
	Recorder         Recorder
	InstrumentOutput restyutil.InstrumentOutput
}

// Session is the state of one term's interaction with the registrar:
// its cookies, its unused nonces and the transport they travel over.
type Session struct {
	// ID tells the requests of one session apart in logs and records.
	ID       string
	Term     term.Term
	Jar      *cookies.Jar
	Pool     *nonce.Pool
	BaseUrl  *url.URL
	Http     *resty.Client
	Location *time.Location

	studentEid string
	login      LoginFunc
	recorder   Recorder

	// serializes every nonce consuming action
	mu sync.Mutex
}

func noRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func NewSession(opts Options) (*Session, error) {
	if opts.Term.Semester == "" {
		return nil, fmt.Errorf("a term is required")
	}
	t, err := term.New(opts.Term.Year, opts.Term.Semester)
	if err != nil {
		return nil, err
	}

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if opts.Jar == nil {
		opts.Jar = cookies.NewJar(nil, nil)
	}
	if opts.Location == nil {
		opts.Location = timezone.Location
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	client := resty.New()
	client.SetBaseURL(baseUrl.String())
	// cookies travel only through the session jar
	client.SetCookieJar(nil)
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(noRedirects))
	client.SetHeader("user-agent", opts.UserAgent)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	restyutil.InstrumentClient(client, tracer, opts.InstrumentOutput)

	return &Session{
		ID:         uuid.NewString(),
		Term:       t,
		Jar:        opts.Jar,
		Pool:       nonce.NewPool(opts.MinNonceCount, opts.MaxNonceCount),
		BaseUrl:    baseUrl,
		Http:       client,
		Location:   opts.Location,
		studentEid: opts.StudentEid,
		login:      opts.Login,
		recorder:   opts.Recorder,
	}, nil
}

// Login runs the configured LoginFunc and replaces the jar's contents
// with the cookies it returns.
func (s *Session) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session:Login")
	defer span.End()

	if s.login == nil {
		err := fmt.Errorf("no login function configured")
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.login(ctx, s.BaseUrl, s.Jar.Cookies())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return err
	}
	s.Jar.Replace(result)
	slog.InfoContext(ctx, "logged in", "cookies", len(result))
	return nil
}
