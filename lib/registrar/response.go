package registrar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"utregister/lib/htmlutil"

	"github.com/go-resty/resty/v2"
)

const (
	errorSelector   = "span.error"
	successSelector = "span.success, #n_message"
)

// messageSource picks where the error text of a page is read from. The
// registrar renders some messages inside the marker and others around
// it, so the other source is tried when the preferred one is empty.
type messageSource int

const (
	fromMarker messageSource = iota
	fromParent
)

type page struct {
	doc       htmlutil.Document
	harvested bool
	// confirmation text, only set for nonce consuming actions
	message string
}

// send issues a request with the jar's cookies attached. The response is
// returned as is, interpreting it is the caller's job.
func (s *Session) send(ctx context.Context, method, path, body string) (*resty.Response, error) {
	req := s.Http.R().SetContext(ctx)
	if header := s.Jar.Serialize(); header != "" {
		req.SetHeader("cookie", header)
	}
	if method == http.MethodPost {
		req.SetHeader("content-type", "application/x-www-form-urlencoded")
		req.SetBody(body)
	}
	res, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return res, nil
}

// interpret checks the status, takes in cookies and the page's nonce,
// then looks for an error marker. The nonce is harvested even from pages
// that report an error.
func (s *Session) interpret(ctx context.Context, res *resty.Response, prefer messageSource) (page, error) {
	if res.StatusCode() != http.StatusOK {
		return page{}, &TransportError{
			Status:   res.StatusCode(),
			Location: res.Header().Get("location"),
			URL:      res.Request.URL,
		}
	}

	for _, header := range res.Header().Values("set-cookie") {
		s.Jar.Ingest(header)
	}

	body := res.Body()
	if len(body) == 0 {
		return page{}, nil
	}
	doc, err := htmlutil.ParseBytes(body)
	if err != nil {
		return page{}, fmt.Errorf("parse response html: %w", err)
	}

	result := page{doc: doc, harvested: s.Pool.Harvest(doc)}
	if !result.harvested {
		slog.DebugContext(ctx, "response carried no nonce", "url", res.Request.URL)
	}

	message := errorMessage(doc, prefer)
	if message != "" {
		return result, &ServerRejection{Message: message}
	}
	return result, nil
}

func markerText(marker htmlutil.Node, source messageSource) string {
	if source == fromParent {
		parent := marker.Parent()
		if parent == nil {
			return ""
		}
		return htmlutil.CleanInline(parent.Text())
	}
	return htmlutil.CleanInline(marker.Text())
}

func errorMessage(doc htmlutil.Document, prefer messageSource) string {
	marker := htmlutil.First(doc, errorSelector)
	if marker == nil {
		return ""
	}
	message := markerText(marker, prefer)
	if message != "" {
		return message
	}
	fallback := fromParent
	if prefer == fromParent {
		fallback = fromMarker
	}
	return markerText(marker, fallback)
}

func successMessage(doc htmlutil.Document) string {
	if doc == nil {
		return ""
	}
	node := htmlutil.First(doc, successSelector)
	if node == nil {
		return ""
	}
	return htmlutil.CleanInline(node.Text())
}
