// Package dnstest queries the loopback resolver for one domain and
// interprets the answer the way a user cares about: blocked, allowed, or
// broken upstream.
package dnstest

import (
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"

	"macblock/internal/paths"
)

// Verdict classifies a query result.
type Verdict string

const (
	VerdictBlocked  Verdict = "BLOCKED"
	VerdictAllowed  Verdict = "ALLOWED"
	VerdictNXDomain Verdict = "NXDOMAIN"
	VerdictError    Verdict = "ERROR"
)

// Result is one interpreted query.
type Result struct {
	Verdict     Verdict
	Explanation string
}

// Query resolves domain against the loopback resolver.
func Query(domain string) (Result, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeA)
	m.RecursionDesired = true

	c := &dns.Client{Timeout: 3 * time.Second}
	addr := fmt.Sprintf("%s:%d", paths.DnsmasqListenAddr, paths.DnsmasqListenPort)

	resp, _, err := c.Exchange(m, addr)
	if err != nil {
		return Result{}, fmt.Errorf("query %s via %s: %w", domain, addr, err)
	}
	return Interpret(resp), nil
}

// Interpret maps a DNS response onto a user-facing verdict. NXDOMAIN gets
// its own verdict; an empty NOERROR answer and sinkhole addresses read as
// blocked; refused/servfail point at upstream configuration problems.
func Interpret(resp *dns.Msg) Result {
	switch resp.Rcode {
	case dns.RcodeRefused:
		return Result{VerdictError, "REFUSED - upstream.conf may be empty or dnsmasq misconfigured"}
	case dns.RcodeServerFailure:
		return Result{VerdictError, "SERVFAIL - upstream DNS failure"}
	case dns.RcodeNameError:
		return Result{VerdictNXDomain, "domain does not exist (NXDOMAIN)"}
	case dns.RcodeSuccess:
	default:
		return Result{VerdictError, "unexpected response " + dns.RcodeToString[resp.Rcode]}
	}

	if len(resp.Answer) == 0 {
		return Result{VerdictBlocked, "no answer returned (sinkholed)"}
	}
	for _, rr := range resp.Answer {
		var ip net.IP
		switch a := rr.(type) {
		case *dns.A:
			ip = a.A
		case *dns.AAAA:
			ip = a.AAAA
		default:
			continue
		}
		if ip.IsLoopback() || ip.IsUnspecified() {
			return Result{VerdictBlocked, "resolved to sinkhole IP " + ip.String()}
		}
		return Result{VerdictAllowed, "resolved to " + ip.String()}
	}
	return Result{VerdictAllowed, "resolved (no address records in answer)"}
}
