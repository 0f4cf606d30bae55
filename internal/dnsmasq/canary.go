package dnsmasq

import (
	"fmt"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"

	"macblock/internal/paths"
)

// Canary asks the loopback resolver for a domain expected to be blocked and
// verifies an NXDOMAIN-equivalent answer. Best-effort: callers log failures
// but do not fail the reload on them.
func Canary(domain string) error {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeA)

	c := &dns.Client{Timeout: 2 * time.Second}
	addr := fmt.Sprintf("%s:%d", paths.DnsmasqListenAddr, paths.DnsmasqListenPort)

	resp, _, err := c.Exchange(m, addr)
	if err != nil {
		return fmt.Errorf("canary query for %s: %w", domain, err)
	}
	if resp.Rcode == dns.RcodeNameError {
		return nil
	}
	if resp.Rcode == dns.RcodeSuccess && len(resp.Answer) == 0 {
		// dnsmasq answers address=/d/ rules with an empty NOERROR for
		// some query types; treat as sinkholed.
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"domain": domain,
		"rcode":  dns.RcodeToString[resp.Rcode],
	}).Warn("canary domain did not resolve as blocked")
	return fmt.Errorf("canary domain %s answered %s, expected NXDOMAIN", domain, dns.RcodeToString[resp.Rcode])
}
