package fetch

import (
	"bufio"
	"encoding/base64"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"golang.org/x/net/proxy"
)

// DialerFactory returns a fasthttp dial func going through proxyURL, nil means
// dial directly
func DialerFactory(proxyURL string, connectTimeout time.Duration) fasthttp.DialFunc {
	if proxyURL == "" {
		return nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		log.Warn().Err(err).Str("proxy", proxyURL).Msg("invalid proxy url, dialing directly")
		return nil
	}

	switch {
	case strings.HasPrefix(u.Scheme, "socks5"):
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			log.Warn().Err(err).Msg("failed to init socks5 proxy, dialing directly")
			return nil
		}
		return func(addr string) (net.Conn, error) {
			return dialer.Dial("tcp", addr)
		}
	case strings.HasPrefix(u.Scheme, "http"):
		return connectDialer(u, connectTimeout)
	}
	log.Warn().Str("scheme", u.Scheme).Msg("unsupported proxy scheme, dialing directly")
	return nil
}

func connectDialer(u *url.URL, connectTimeout time.Duration) fasthttp.DialFunc {
	proxyAddr := u.Host
	if u.Port() == "" {
		proxyAddr = net.JoinHostPort(u.Hostname(), "80")
	}

	var authHeader string
	if u.User != nil {
		password, _ := u.User.Password()
		authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(u.User.Username()+":"+password))
	}

	return func(addr string) (net.Conn, error) {
		conn, err := net.DialTimeout("tcp", proxyAddr, connectTimeout)
		if err != nil {
			return nil, err
		}

		req := "CONNECT " + addr + " HTTP/1.1\r\nHost: " + addr + "\r\n"
		if authHeader != "" {
			req += "Proxy-Authorization: " + authHeader + "\r\n"
		}
		req += "\r\n"
		if _, err := conn.Write([]byte(req)); err != nil {
			conn.Close()
			return nil, err
		}

		reader := bufio.NewReader(conn)
		status, err := reader.ReadString('\n')
		if err != nil {
			conn.Close()
			return nil, err
		}
		if fields := strings.Fields(status); len(fields) < 2 || fields[1] != "200" {
			conn.Close()
			return nil, errors.Errorf("proxy CONNECT failed: %s", strings.TrimSpace(status))
		}
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				conn.Close()
				return nil, err
			}
			if line == "\r\n" || line == "\n" {
				break
			}
		}
		if reader.Buffered() > 0 {
			return &bufferedConn{Conn: conn, r: reader}, nil
		}
		return conn, nil
	}
}

// bufferedConn keeps bytes the proxy sent along with its CONNECT reply
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (b *bufferedConn) Read(p []byte) (int, error) {
	return b.r.Read(p)
}
