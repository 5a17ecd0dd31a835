package registrar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"utregister/lib/htmlutil"
	"utregister/lib/registrar/ris"
	"utregister/lib/registrar/tables"
	"utregister/lib/registrar/term"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// ActionResult is a page the registrar accepted. Message is its
// confirmation text, empty when the page has none.
type ActionResult struct {
	Code    Code
	Message string
}

// Attempt is what a Recorder is told about every nonce consuming action.
type Attempt struct {
	Session string
	Term    term.Term
	Code    Code
	Params  map[string]string
	Message string
	Err     error
	Time    time.Time
}

type Recorder interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// SetRecorder installs r, nil disables recording.
func (s *Session) SetRecorder(r Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = r
}

func (s *Session) record(ctx context.Context, spec RequestSpec, message string, err error) {
	attrs := metric.WithAttributes(
		attribute.String("code", string(spec.Code)),
		attribute.Bool("ok", err == nil),
	)
	actionCounter.Add(ctx, 1, attrs)
	nonceGauge.Record(ctx, int64(s.Pool.Len()))

	if s.recorder == nil {
		return
	}
	recordErr := s.recorder.RecordAttempt(ctx, Attempt{
		Session: s.ID,
		Term:    s.Term,
		Code:    spec.Code,
		Params:  spec.Params,
		Message: message,
		Err:     err,
		Time:    time.Now().In(s.Location),
	})
	if recordErr != nil {
		slog.WarnContext(ctx, "failed to record action", "code", spec.Code, "err", recordErr)
	}
}

// perform sends one nonce consuming request. Actions on a session never
// overlap.
func (s *Session) perform(ctx context.Context, spec RequestSpec, prefer messageSource) (page, error) {
	ctx, span := tracer.Start(ctx, "session:"+string(spec.Code))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.performLocked(ctx, spec, prefer)
	if err == nil {
		result.message = successMessage(result.doc)
	}
	s.record(ctx, spec, result.message, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "action failed")
	}
	return result, err
}

func (s *Session) performLocked(ctx context.Context, spec RequestSpec, prefer messageSource) (page, error) {
	req, err := s.buildRequest(spec)
	if err != nil {
		return page{}, err
	}
	res, err := s.send(ctx, req.method, req.url(), req.body())
	if err != nil {
		return page{}, err
	}
	return s.interpret(ctx, res, prefer)
}

func (s *Session) act(ctx context.Context, code Code, params map[string]string) (ActionResult, error) {
	result, err := s.perform(ctx, RequestSpec{
		Code:     code,
		Method:   http.MethodPost,
		Mode:     ParamsInBody,
		Endpoint: EndpointRegistration,
		Params:   params,
	}, fromParent)
	if err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Code: code, Message: result.message}, nil
}

// BeginRegistration opens the registration page for the term, the
// registrar expects it before any add or drop.
func (s *Session) BeginRegistration(ctx context.Context) (ActionResult, error) {
	return s.act(ctx, CodeBeginRegistration, nil)
}

func (s *Session) AddCourse(ctx context.Context, unique string) (ActionResult, error) {
	return s.act(ctx, CodeAdd, map[string]string{"s_unique_add": unique})
}

func (s *Session) DropCourse(ctx context.Context, unique string) (ActionResult, error) {
	return s.act(ctx, CodeDrop, map[string]string{"s_unique_drop": unique})
}

// SwapCourse drops one section only if the other can be added.
func (s *Session) SwapCourse(ctx context.Context, drop, add string) (ActionResult, error) {
	return s.act(ctx, CodeSwap, map[string]string{
		"s_swap_unique_drop": drop,
		"s_swap_unique_add":  add,
	})
}

// JoinWaitlist waits on unique. If dropIfAdded is not empty, that section
// is dropped once the waitlisted one is added.
func (s *Session) JoinWaitlist(ctx context.Context, unique, dropIfAdded string) (ActionResult, error) {
	return s.act(ctx, CodeWaitlist, map[string]string{
		"s_unique_add": unique,
		"s_af_unique":  dropIfAdded,
	})
}

// ToggleGradingBasis switches a section between letter grade and pass/fail.
func (s *Session) ToggleGradingBasis(ctx context.Context, unique string) (ActionResult, error) {
	return s.act(ctx, CodeGradingBasis, map[string]string{"s_unique": unique})
}

// Acknowledge accepts the one time notices (degree plan, email address)
// that block registration until confirmed.
func (s *Session) Acknowledge(ctx context.Context) (ActionResult, error) {
	result, err := s.perform(ctx, RequestSpec{
		Code:     CodeAcknowledge,
		Method:   http.MethodPost,
		Mode:     ParamsInBody,
		Endpoint: EndpointAcknowledge,
		Params: map[string]string{
			"ack_sw":        "Y",
			"ack_degr_plan": "Y",
		},
	}, fromParent)
	if err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Code: CodeAcknowledge, Message: result.message}, nil
}

// SearchSection looks up a single unique number and returns the result
// table grouped by unique.
func (s *Session) SearchSection(ctx context.Context, unique string) (tables.Sections, error) {
	result, err := s.perform(ctx, RequestSpec{
		Code:     CodeSearch,
		Method:   http.MethodGet,
		Mode:     ParamsInQuery,
		Endpoint: EndpointSearch,
		Params:   map[string]string{"s_unique_search": unique},
	}, fromMarker)
	if err != nil {
		return tables.Sections{}, err
	}
	if result.doc == nil {
		return tables.Sections{Groups: map[string][]tables.Row{}}, nil
	}
	return tables.ParseSections(tables.FindTable(result.doc, "table")), nil
}

// fetch is a read only GET that consumes no nonce. The page's nonce is
// still harvested.
func (s *Session) fetch(ctx context.Context, endpoint string) (htmlutil.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.send(ctx, http.MethodGet, endpoint, "")
	if err != nil {
		return nil, err
	}
	result, err := s.interpret(ctx, res, fromMarker)
	if err != nil {
		return nil, err
	}
	if result.doc == nil {
		return nil, fmt.Errorf("%s: empty response", endpoint)
	}
	return result.doc, nil
}

// ClassListing returns the student's current schedule.
func (s *Session) ClassListing(ctx context.Context) ([]tables.Row, error) {
	ctx, span := tracer.Start(ctx, "session:ClassListing")
	defer span.End()

	doc, err := s.fetch(ctx, EndpointClassList)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch class listing")
		return nil, err
	}
	return tables.ParseListing(htmlutil.First(doc, "table")), nil
}

// Registration is the decoded registration information page.
type Registration struct {
	Access  []ris.Access
	Windows []ris.Window
	Bars    []tables.Row
	// only populated in lenient mode
	Errors []*ris.ParseError
}

// RegistrationTimes fetches and decodes the registration windows. In
// strict mode the first undecodable span fails the call, in lenient mode
// it is collected into Registration.Errors.
func (s *Session) RegistrationTimes(ctx context.Context, lenient bool) (Registration, error) {
	ctx, span := tracer.Start(ctx, "session:RegistrationTimes")
	defer span.End()

	doc, err := s.fetch(ctx, EndpointRIS)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch registration information")
		return Registration{}, err
	}

	access := ris.ParseTimes(doc)
	decoder := ris.Decoder{Term: s.Term, Location: s.Location}
	result := Registration{
		Access: access,
		Bars:   ris.ParseBars(doc),
	}

	spans := ris.Spans(access)
	if lenient {
		result.Windows, result.Errors = decoder.DecodeLenient(spans)
		for _, parseErr := range result.Errors {
			slog.WarnContext(ctx, "skipped registration span", "span", parseErr.Span, "reason", parseErr.Reason)
		}
		return result, nil
	}

	result.Windows, err = decoder.DecodeAll(spans)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode registration times")
		return Registration{}, err
	}
	return result, nil
}
