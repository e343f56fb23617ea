package script

// The http_tls module gives scripts an HTTP client with a Chrome TLS fingerprint
// (refraction-networking/utls). Connections try HTTP/2 first and fall back to HTTP/1.1.
//
//	http_tls.get(url)              -> body string
//	http_tls.get(url, headers_tbl) -> body string with custom headers
//	http_tls.request(options_tbl)  -> {status, body, headers}
//
// request options: method, url, body, headers, cache (bool, caches 200 responses).

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/playengine/playengine/constant"
	"github.com/playengine/playengine/internal/cache"
	utls "github.com/refraction-networking/utls"
	lua "github.com/yuin/gopher-lua"
	"golang.org/x/net/http2"
)

const httpTimeout = 30 * time.Second

var responses = sync.OnceValue(func() *cache.Store {
	return cache.New("http_tls", time.Hour)
})

type response struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

func registerTLSClient(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "get", L.NewFunction(httpTLSGet))
	L.SetField(mod, "request", L.NewFunction(httpTLSRequest))
	L.SetGlobal("http_tls", mod)
}

func httpTLSGet(L *lua.LState) int {
	url := L.CheckString(1)
	headers := tableToMap(L.OptTable(2, nil))

	resp, err := doTLSRequest(L.Context(), http.MethodGet, url, headers, "")
	if err != nil {
		L.RaiseError("http_tls.get failed: %s", err.Error())
		return 0
	}

	L.Push(lua.LString(resp.Body))
	return 1
}

func httpTLSRequest(L *lua.LState) int {
	opts := L.CheckTable(1)

	method := stringFieldOr(opts, "method", http.MethodGet)
	url := stringFieldOr(opts, "url", "")
	body := stringFieldOr(opts, "body", "")
	if url == "" {
		L.RaiseError("http_tls.request: url is required")
		return 0
	}

	headers, _ := opts.RawGetString("headers").(*lua.LTable)
	shouldCache := lua.LVAsBool(opts.RawGetString("cache"))

	var key string
	if shouldCache {
		key = cache.Key(method, url, body)
		var cached response
		if responses().Read(key, &cached) {
			L.Push(responseTable(L, cached))
			return 1
		}
	}

	resp, err := doTLSRequest(L.Context(), method, url, tableToMap(headers), body)
	if err != nil {
		L.RaiseError("http_tls.request failed: %s", err.Error())
		return 0
	}

	if shouldCache && resp.Status == http.StatusOK {
		_ = responses().Write(key, resp)
	}

	L.Push(responseTable(L, resp))
	return 1
}

func responseTable(L *lua.LState, resp response) *lua.LTable {
	result := L.NewTable()
	L.SetField(result, "status", lua.LNumber(resp.Status))
	L.SetField(result, "body", lua.LString(resp.Body))

	headers := L.NewTable()
	for k, v := range resp.Headers {
		L.SetField(headers, k, lua.LString(v))
	}
	L.SetField(result, "headers", headers)
	return result
}

func tableToMap(tbl *lua.LTable) map[string]string {
	m := make(map[string]string)
	if tbl == nil {
		return m
	}
	tbl.ForEach(func(k, v lua.LValue) {
		m[k.String()] = v.String()
	})
	return m
}

func stringFieldOr(tbl *lua.LTable, key, def string) string {
	val := tbl.RawGetString(key)
	if val == lua.LNil {
		return def
	}
	return val.String()
}

var (
	h2Transport = sync.OnceValue(func() *http2.Transport {
		return &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialTLS(ctx, network, addr, "h2", "http/1.1")
			},
		}
	})

	h1Transport = &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLS(ctx, network, addr, "http/1.1")
		},
	}
)

func doTLSRequest(ctx context.Context, method, rawURL string, headers map[string]string, body string) (response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	newRequest := func() (*http.Request, error) {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("User-Agent", constant.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.5")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}

	req, err := newRequest()
	if err != nil {
		return response{}, err
	}

	resp, err := (&http.Client{Timeout: httpTimeout, Transport: h2Transport()}).Do(req)
	if err != nil {
		if req, err = newRequest(); err != nil {
			return response{}, err
		}
		resp, err = (&http.Client{Timeout: httpTimeout, Transport: h1Transport}).Do(req)
		if err != nil {
			return response{}, fmt.Errorf("request failed: %w", err)
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("read body: %w", err)
	}

	out := response{Status: resp.StatusCode, Body: string(data), Headers: make(map[string]string)}
	for k := range resp.Header {
		out.Headers[k] = resp.Header.Get(k)
	}
	return out, nil
}

func dialTLS(ctx context.Context, network, addr string, protos ...string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	dialer := &net.Dialer{Timeout: httpTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	config := &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	if len(protos) == 1 {
		config.NextProtos = protos
	}

	tlsConn := utls.UClient(conn, config, utls.HelloChrome_120)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
