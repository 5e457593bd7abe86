package utils

import (
	"net"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 60 * time.Second

type httpClientOptions struct {
	timeout         time.Duration
	maxIdleConns    int
	idleConnTimeout time.Duration
}

type HTTPClientOption func(*httpClientOptions)

// WithTimeout 整个请求（含读取响应体）的超时时间
func WithTimeout(d time.Duration) HTTPClientOption {
	return func(o *httpClientOptions) {
		o.timeout = d
	}
}

func WithMaxIdleConns(n int) HTTPClientOption {
	return func(o *httpClientOptions) {
		o.maxIdleConns = n
	}
}

func NewHTTPClient(opts ...HTTPClientOption) *http.Client {
	o := httpClientOptions{
		timeout:         defaultHTTPTimeout,
		maxIdleConns:    100,
		idleConnTimeout: 90 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          o.maxIdleConns,
		MaxIdleConnsPerHost:   o.maxIdleConns,
		IdleConnTimeout:       o.idleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   o.timeout,
		Transport: transport,
	}
}

func DefaultHTTPClient() *http.Client {
	return NewHTTPClient()
}
