package dnsserver

import (
	"context"
	"errors"
	"net"
	"strings"

	"subdns/internal/lifecycle"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

const answerTTL = 300

// The responder only signals "this name is known"; actual traffic routing
// happens in the reverse proxy, so every answer points at loopback.
var answerAddr = net.IPv4(127, 0, 0, 1)

// Resolver is the lookup surface the handler consults for each question
type Resolver interface {
	Resolve(ctx context.Context, fqdn string) (*lifecycle.Resolution, error)
}

// Handler resolves questions against the registry and writes wire answers
type Handler struct {
	suffix   string
	resolver Resolver
	log      *logrus.Entry
}

// NewHandler creates a handler authoritative for the delegated suffix
func NewHandler(suffix string, resolver Resolver, logger *logrus.Entry) *Handler {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{
		suffix:   strings.ToLower(strings.Trim(suffix, ".")),
		resolver: resolver,
		log:      logger.WithField("component", "dns"),
	}
}

// ServeDNS answers one query. Each question resolves independently; the
// response code reflects the last-processed question, which matches the
// single-question queries every deployed client sends. Lookups that blow
// up internally become SERVFAIL, never a dropped goroutine.
func (h *Handler) ServeDNS(w dns.ResponseWriter, req *dns.Msg) {
	resp := new(dns.Msg)
	resp.SetReply(req)
	resp.Authoritative = true

	defer func() {
		if r := recover(); r != nil {
			h.log.WithField("panic", r).Error("query handling panicked")
			resp.Answer = nil
			resp.Rcode = dns.RcodeServerFailure
			_ = w.WriteMsg(resp)
		}
	}()

	for _, q := range req.Question {
		name := strings.ToLower(strings.TrimSuffix(q.Name, "."))

		if !h.inSuffix(name) {
			resp.Rcode = dns.RcodeNameError
			continue
		}
		if q.Qtype != dns.TypeA && q.Qtype != dns.TypeANY {
			resp.Rcode = dns.RcodeNameError
			continue
		}

		res, err := h.resolver.Resolve(context.Background(), name)
		switch {
		case err == nil && res != nil:
			resp.Answer = append(resp.Answer, &dns.A{
				Hdr: dns.RR_Header{
					Name:   q.Name,
					Rrtype: dns.TypeA,
					Class:  dns.ClassINET,
					Ttl:    answerTTL,
				},
				A: answerAddr,
			})
			resp.Rcode = dns.RcodeSuccess
		case errors.Is(err, lifecycle.ErrNotFound):
			resp.Rcode = dns.RcodeNameError
		default:
			h.log.WithError(err).WithField("name", name).Warn("resolution failed")
			resp.Rcode = dns.RcodeServerFailure
		}
	}

	if err := w.WriteMsg(resp); err != nil {
		h.log.WithError(err).Debug("failed to write response")
	}
}

func (h *Handler) inSuffix(name string) bool {
	return strings.HasSuffix(name, "."+h.suffix)
}
