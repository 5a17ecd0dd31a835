package restyutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mu       sync.Mutex
	messages map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages[id] = contents
}

func TestRedact(t *testing.T) {
	require.Equal(
		t,
		"s_ccyys=20239&s_nonce=<redacted>&s_request=STADD",
		redact("s_ccyys=20239&s_nonce=ABCDEF&s_request=STADD"),
	)

	headers := http.Header{}
	headers.Set("Cookie", "SC=secret")
	headers.Set("Accept", "text/html")
	formatted := formatHeaders(headers)
	require.Equal(t, "Accept: text/html\nCookie: <redacted 9 bytes>", formatted)
}

func TestInstrumentClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "SC=secret")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	out := &memoryOutput{messages: map[string]string{}}
	client := resty.New()
	InstrumentClient(client, nil, out)

	res, err := client.R().
		SetHeader("cookie", "SC=secret").
		Get(srv.URL + "/page?s_nonce=ABC")
	require.NoError(t, err)
	require.Equal(t, 200, res.StatusCode())

	// messages are only written when debug logging is enabled
	out.mu.Lock()
	defer out.mu.Unlock()
	for _, msg := range out.messages {
		require.False(t, strings.Contains(msg, "secret"))
		require.False(t, strings.Contains(msg, "ABC"))
	}
}
