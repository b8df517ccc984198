package dnsserver

import (
	"context"
	"log"
	"time"

	"github.com/miekg/dns"
)

// Server answers DNS queries for the delegated suffix over UDP and TCP
type Server struct {
	addr    string
	handler *Handler
	udp     *dns.Server
	tcp     *dns.Server
}

// NewServer creates a DNS server listening on addr for both transports
func NewServer(addr string, handler *Handler, tcpTimeout time.Duration) *Server {
	mux := dns.NewServeMux()
	mux.HandleFunc(".", handler.ServeDNS)

	return &Server{
		addr:    addr,
		handler: handler,
		udp: &dns.Server{
			Addr:    addr,
			Net:     "udp",
			Handler: mux,
			UDPSize: dns.DefaultMsgSize,
		},
		tcp: &dns.Server{
			Addr:        addr,
			Net:         "tcp",
			Handler:     mux,
			ReadTimeout: tcpTimeout,
		},
	}
}

// Start launches the UDP and TCP listeners. Listen failures after startup
// are logged; the first one is also sent to errCh so the caller can abort.
func (s *Server) Start(errCh chan<- error) {
	for _, srv := range []*dns.Server{s.udp, s.tcp} {
		go func(srv *dns.Server) {
			log.Printf("[DNS] Serving on %s (%s)", srv.Addr, srv.Net)
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("[DNS] %s server stopped: %v", srv.Net, err)
				select {
				case errCh <- err:
				default:
				}
			}
		}(srv)
	}
}

// Shutdown stops both listeners
func (s *Server) Shutdown(ctx context.Context) error {
	var first error
	for _, srv := range []*dns.Server{s.udp, s.tcp} {
		if err := srv.ShutdownContext(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
