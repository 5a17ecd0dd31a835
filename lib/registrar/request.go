package registrar

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Code is the s_request value that selects what the registrar does with
// a request.
type Code string

const (
	CodeAdd               Code = "STADD"
	CodeDrop              Code = "STDRP"
	CodeSwap              Code = "STSWP"
	CodeWaitlist          Code = "STAWL"
	CodeGradingBasis      Code = "STCPF"
	CodeSearch            Code = "STGOF"
	CodeBeginRegistration Code = "STGAR"
	CodeAcknowledge       Code = "STUOF"
	// known to the registrar but not issued by any action
	CodeReserved Code = "STGAC"
)

type ParamMode int

const (
	ParamsInBody ParamMode = iota
	ParamsInQuery
)

// RequestSpec describes a nonce consuming request before the managed
// parameters are filled in.
type RequestSpec struct {
	Code     Code
	Method   string
	Mode     ParamMode
	Endpoint string
	Params   map[string]string
}

const (
	paramTerm       = "s_ccyys"
	paramNonce      = "s_nonce"
	paramRequest    = "s_request"
	paramStudentEid = "s_student_eid"
)

type param struct {
	key   string
	value string
}

type builtRequest struct {
	method   string
	endpoint string
	mode     ParamMode
	encoded  string
}

// url returns the path the request is sent to, with the parameters
// appended in query mode.
func (r builtRequest) url() string {
	if r.mode == ParamsInQuery && r.encoded != "" {
		return r.endpoint + "?" + r.encoded
	}
	return r.endpoint
}

// body is empty in query mode.
func (r builtRequest) body() string {
	if r.mode == ParamsInBody {
		return r.encoded
	}
	return ""
}

// QueryEscape leaves fewer characters alone than encodeURIComponent.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent escapes like encodeURIComponent, spaces become %20.
func encodeComponent(text string) string {
	return componentUnescaper.Replace(url.QueryEscape(text))
}

func isManaged(key string) bool {
	switch key {
	case paramTerm, paramNonce, paramRequest, paramStudentEid:
		return true
	}
	return false
}

// encodeParams emits the caller's parameters in sorted key order followed
// by the managed ones. A caller parameter sharing a managed name is
// dropped in favor of the managed value.
func encodeParams(caller map[string]string, managed []param) string {
	keys := make([]string, 0, len(caller))
	for k := range caller {
		if isManaged(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)+len(managed))
	for _, k := range keys {
		pairs = append(pairs, encodeComponent(k)+"="+encodeComponent(caller[k]))
	}
	for _, p := range managed {
		pairs = append(pairs, encodeComponent(p.key)+"="+encodeComponent(p.value))
	}
	return strings.Join(pairs, "&")
}

// buildRequest takes one nonce from the pool. When the pool is empty it
// fails without producing anything to send.
func (s *Session) buildRequest(spec RequestSpec) (builtRequest, error) {
	n, err := s.Pool.Take()
	if err != nil {
		return builtRequest{}, err
	}

	method := spec.Method
	if method == "" {
		method = http.MethodPost
	}
	managed := []param{
		{key: paramTerm, value: s.Term.Code()},
		{key: paramNonce, value: n},
		{key: paramRequest, value: string(spec.Code)},
		{key: paramStudentEid, value: s.studentEid},
	}
	return builtRequest{
		method:   method,
		endpoint: spec.Endpoint,
		mode:     spec.Mode,
		encoded:  encodeParams(spec.Params, managed),
	}, nil
}
