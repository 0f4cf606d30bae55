package dnstest

import (
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

func response(rcode int, answers ...dns.RR) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion("example.com.", dns.TypeA)
	resp := new(dns.Msg)
	resp.SetReply(m)
	resp.Rcode = rcode
	resp.Answer = answers
	return resp
}

func aRecord(ip string) *dns.A {
	return &dns.A{
		Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
		A:   net.ParseIP(ip),
	}
}

func TestInterpret(t *testing.T) {
	t.Run("NXDomain", func(t *testing.T) {
		r := Interpret(response(dns.RcodeNameError))
		assert.Equal(t, VerdictNXDomain, r.Verdict)
	})

	t.Run("EmptyNoErrorIsSinkholed", func(t *testing.T) {
		r := Interpret(response(dns.RcodeSuccess))
		assert.Equal(t, VerdictBlocked, r.Verdict)
	})

	t.Run("SinkholeAddresses", func(t *testing.T) {
		for _, ip := range []string{"0.0.0.0", "127.0.0.1"} {
			r := Interpret(response(dns.RcodeSuccess, aRecord(ip)))
			assert.Equal(t, VerdictBlocked, r.Verdict, ip)
		}
	})

	t.Run("RealAnswer", func(t *testing.T) {
		r := Interpret(response(dns.RcodeSuccess, aRecord("93.184.216.34")))
		assert.Equal(t, VerdictAllowed, r.Verdict)
		assert.Contains(t, r.Explanation, "93.184.216.34")
	})

	t.Run("Refused", func(t *testing.T) {
		r := Interpret(response(dns.RcodeRefused))
		assert.Equal(t, VerdictError, r.Verdict)
		assert.Contains(t, r.Explanation, "upstream.conf")
	})

	t.Run("ServFail", func(t *testing.T) {
		r := Interpret(response(dns.RcodeServerFailure))
		assert.Equal(t, VerdictError, r.Verdict)
	})
}
