package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// ExactSet is a set of known sender short codes.
type ExactSet map[string]struct{}

// NewExactSet builds an ExactSet from codes.
func NewExactSet(codes ...string) ExactSet {
	s := make(ExactSet, len(codes))
	for _, c := range codes {
		s[strings.ToUpper(c)] = struct{}{}
	}
	return s
}

// Has reports whether code is in the set.
func (s ExactSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Profile describes one bank dialect: how to recognise its senders and which
// rules parse its messages. Profiles are read-only after construction.
type Profile struct {
	Bank   models.BankID
	Name   string
	Exact  ExactSet
	Family []*regexp.Regexp
	Rules  Parser
}

func (p *Profile) matchesExact(tokens []string) bool {
	for _, t := range tokens {
		if p.Exact.Has(t) {
			return true
		}
	}
	return false
}

func (p *Profile) matchesFamily(candidates []string) bool {
	for _, re := range p.Family {
		for _, c := range candidates {
			if re.MatchString(c) {
				return true
			}
		}
	}
	return false
}

var senderDelims = regexp.MustCompile(`[\-_ .:/]+`)

// senderTokens uppercases a sender ID and splits it on delimiters. The
// joined form ("VMHDFCBK" for "VM-HDFCBK") is returned separately.
func senderTokens(sender string) (tokens []string, joined string) {
	up := strings.ToUpper(strings.TrimSpace(sender))
	for _, t := range senderDelims.Split(up, -1) {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens, strings.Join(tokens, "")
}

// Registry resolves senders to dialect profiles. It is immutable after
// NewRegistry and safe for concurrent use.
type Registry struct {
	profiles []*Profile
	log      zerolog.Logger
}

// NewRegistry builds a registry over profiles, checked in order.
func NewRegistry(log zerolog.Logger, profiles ...*Profile) *Registry {
	return &Registry{profiles: profiles, log: log}
}

// DefaultRegistry returns a registry with every built-in dialect.
func DefaultRegistry(log zerolog.Logger) *Registry {
	return NewRegistry(log, DefaultProfiles()...)
}

// Profiles returns the registered profiles in resolution order.
func (r *Registry) Profiles() []*Profile {
	return append([]*Profile(nil), r.profiles...)
}

// Resolve returns the profile for sender, or nil when no dialect matches.
// Exact short codes are tried across all banks before any pattern family.
// A profile whose probe panics is skipped.
func (r *Registry) Resolve(sender string) *Profile {
	tokens, joined := senderTokens(sender)
	if len(tokens) == 0 {
		return nil
	}
	for _, p := range r.profiles {
		if r.probe(p, "exact", func() bool { return p.matchesExact(tokens) }) {
			return p
		}
	}
	candidates := append(tokens[:len(tokens):len(tokens)], joined)
	for _, p := range r.profiles {
		if r.probe(p, "family", func() bool { return p.matchesFamily(candidates) }) {
			return p
		}
	}
	return nil
}

func (r *Registry) probe(p *Profile, stage string, match func() bool) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn().
				Str("bank", string(p.Bank)).
				Str("stage", stage).
				Str("panic", fmt.Sprint(rec)).
				Msg("dialect probe failed, skipping")
			ok = false
		}
	}()
	return match()
}

// DefaultProfiles returns the built-in dialects. Each family is anchored on
// the bank's own token so families never overlap.
func DefaultProfiles() []*Profile {
	return []*Profile{
		{
			Bank:  models.BankHDFC,
			Name:  "HDFC Bank",
			Exact: NewExactSet("HDFCBK", "HDFCBN", "HDFCBANK", "HDFCCC"),
			Family: []*regexp.Regexp{
				regexp.MustCompile(`^(?:[A-Z]{2})?HDFC(?:BK|BN|CC|BANK)[A-Z0-9]{0,3}$`),
			},
			Rules: hdfcRules(),
		},
		{
			Bank:  models.BankICICI,
			Name:  "ICICI Bank",
			Exact: NewExactSet("ICICIB", "ICICIT", "ICICIO", "ICIBNK"),
			Family: []*regexp.Regexp{
				regexp.MustCompile(`^(?:[A-Z]{2})?ICICI[A-Z0-9]{1,4}$`),
			},
			Rules: iciciRules(),
		},
		{
			Bank:  models.BankSBI,
			Name:  "State Bank of India",
			Exact: NewExactSet("SBIINB", "SBIUPI", "SBIPSG", "ATMSBI", "CBSSBI", "SBMSBI", "SBIBNK"),
			Family: []*regexp.Regexp{
				regexp.MustCompile(`^(?:[A-Z]{2})?(?:SBI(?:INB|UPI|PSG|BNK|SMS|TXN)|(?:ATM|CBS)SBI)[A-Z0-9]{0,2}$`),
			},
			Rules: sbiRules(),
		},
		{
			Bank:  models.BankAxis,
			Name:  "Axis Bank",
			Exact: NewExactSet("AXISBK", "AXISMR", "AXISBN", "AXISCC"),
			Family: []*regexp.Regexp{
				regexp.MustCompile(`^(?:[A-Z]{2})?AXIS(?:BK|BN|MR|CC|BANK)[A-Z0-9]{0,3}$`),
			},
			Rules: axisRules(),
		},
		{
			Bank:  models.BankKotak,
			Name:  "Kotak Mahindra Bank",
			Exact: NewExactSet("KOTAKB", "KOTAKM", "KOTAK"),
			Family: []*regexp.Regexp{
				regexp.MustCompile(`^(?:[A-Z]{2})?KOTAK[A-Z0-9]{0,4}$`),
			},
			Rules: kotakRules(),
		},
		{
			Bank:  models.BankPaytm,
			Name:  "Paytm",
			Exact: NewExactSet("PAYTMB", "IPAYTM", "PYTMBK"),
			Family: []*regexp.Regexp{
				regexp.MustCompile(`^(?:[A-Z]{2})?(?:PAYTM|PYTM)[A-Z0-9]{0,4}$`),
			},
			Rules: paytmRules(),
		},
	}
}
