package extractor

import (
	"encoding/base64"
	"net/url"
	"strings"
)

const (
	// DefaultMirrorHost is the Nitter instance scraped by default.
	DefaultMirrorHost = "nitter.net"
	// MediaHost serves images on the origin service.
	MediaHost = "pbs.twimg.com"
	// OriginHost serves status pages on the origin service.
	OriginHost = "x.com"
)

// Rewriter maps mirror image-proxy URLs back to the origin media host.
type Rewriter struct {
	mirrors map[string]bool
}

// NewRewriter creates a Rewriter that treats the given hosts (and
// host-less paths) as mirror URLs.
func NewRewriter(mirrorHosts ...string) *Rewriter {
	rw := &Rewriter{mirrors: make(map[string]bool, len(mirrorHosts))}
	for _, h := range mirrorHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			rw.mirrors[h] = true
		}
	}
	return rw
}

// DefaultRewriter rewrites URLs from DefaultMirrorHost.
var DefaultRewriter = NewRewriter(DefaultMirrorHost)

// RewriteMediaURL rewrites raw with DefaultRewriter.
func RewriteMediaURL(raw string) string {
	return DefaultRewriter.Rewrite(raw)
}

// Rewrite turns a mirror image URL such as
//
//	https://nitter.net/pic/media%2FFxYz.jpg%3Fname%3Dsmall
//
// into https://pbs.twimg.com/media/FxYz.jpg?name=small. Anything it
// cannot interpret as a mirror image URL is returned unchanged, which
// also makes the rewrite idempotent.
func (rw *Rewriter) Rewrite(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	if u.Host != "" && !rw.mirrors[strings.ToLower(u.Hostname())] {
		return raw
	}
	if u.Host == "" && u.Scheme != "" {
		return raw
	}

	// EscapedPath keeps %2F separators intact so the remainder can be
	// decoded as a single unit.
	p := u.EscapedPath()
	if !strings.HasPrefix(p, "/pic/") {
		return raw
	}
	rest := strings.TrimPrefix(p, "/pic/")
	rest = strings.TrimPrefix(rest, "orig/")
	if u.RawQuery != "" {
		rest += "?" + u.RawQuery
	}

	var decoded string
	if enc, ok := strings.CutPrefix(rest, "enc/"); ok {
		b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(enc, "="))
		if err != nil {
			return raw
		}
		decoded = string(b)
	} else {
		decoded, err = url.PathUnescape(rest)
		if err != nil {
			return raw
		}
	}
	decoded = strings.TrimLeft(decoded, "/")
	if decoded == "" {
		return raw
	}

	if strings.HasPrefix(decoded, "http://") || strings.HasPrefix(decoded, "https://") {
		abs, err := url.Parse(decoded)
		if err != nil || !isTwimg(abs.Hostname()) {
			return raw
		}
		if abs.Scheme == "http" {
			abs.Scheme = "https"
		}
		return abs.String()
	}

	// Some mirror versions keep the media host inside the proxied path.
	target := "https://" + MediaHost + "/" + decoded
	if first, _, _ := strings.Cut(decoded, "/"); isTwimg(first) {
		target = "https://" + decoded
	}
	out, err := url.Parse(target)
	if err != nil || !isTwimg(out.Hostname()) {
		return raw
	}
	return out.String()
}

func isTwimg(host string) bool {
	host = strings.ToLower(host)
	return host == "twimg.com" || strings.HasSuffix(host, ".twimg.com")
}
