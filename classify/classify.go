// Package classify decides whether a bond is a sovereign (Treasury-style) or a
// corporate instrument, recording which piece of evidence decided it.
package classify

import (
	"strings"

	"github.com/meenmo/fixedincome/convention"
)

// Method names the evidence that produced a classification.
type Method string

const (
	MethodIdentifierPrefix   Method = "identifier_prefix"
	MethodDescriptionKeyword Method = "description_keyword"
	MethodIssuerField        Method = "issuer_field"
	MethodCatalogRecord      Method = "catalog_record"
	MethodDefault            Method = "default"
)

// Evidence is everything the classifier may look at. Empty fields are skipped.
type Evidence struct {
	Identifier   string
	Description  string
	Issuer       string
	CatalogClass convention.InstrumentClass
}

// Classification is the decided class and the method that decided it.
type Classification struct {
	Class  convention.InstrumentClass
	Method Method
}

// Classifier holds the sovereign markers. The zero value classifies everything
// as corporate; use Default or New.
type Classifier struct {
	prefixes        []string
	leadingTokens   map[string]struct{}
	keywords        map[string]struct{}
	issuerFragments []string
}

// Options overrides the built-in marker lists. Nil slices keep the defaults.
type Options struct {
	IdentifierPrefixes []string
	LeadingTokens      []string
	Keywords           []string
	IssuerFragments    []string
}

var (
	// US Treasury bonds, notes, bills (CUSIP and US ISIN forms) and German Bunds.
	defaultPrefixes = []string{"912810", "912828", "91282C", "912796", "912797", "DE0001"}

	defaultLeadingTokens = []string{"T", "UST", "TSY", "B", "DBR", "UKT", "JGB", "OAT", "BTPS"}

	defaultKeywords = []string{"TREASURY", "TREASURIES", "GILT", "BUND", "GOVERNMENT"}

	defaultIssuerFragments = []string{"TREASURY", "GOVERNMENT", "REPUBLIC OF", "KINGDOM OF"}
)

// Default is a classifier with the built-in marker lists.
var Default = New(Options{})

// New builds a classifier, falling back to the built-in lists for nil options.
func New(opts Options) *Classifier {
	pick := func(custom, def []string) []string {
		if custom == nil {
			return def
		}
		return custom
	}
	c := &Classifier{
		leadingTokens: make(map[string]struct{}),
		keywords:      make(map[string]struct{}),
	}
	for _, p := range pick(opts.IdentifierPrefixes, defaultPrefixes) {
		c.prefixes = append(c.prefixes, strings.ToUpper(strings.TrimSpace(p)))
	}
	for _, tok := range pick(opts.LeadingTokens, defaultLeadingTokens) {
		c.leadingTokens[strings.ToUpper(tok)] = struct{}{}
	}
	for _, kw := range pick(opts.Keywords, defaultKeywords) {
		c.keywords[strings.ToUpper(kw)] = struct{}{}
	}
	for _, f := range pick(opts.IssuerFragments, defaultIssuerFragments) {
		c.issuerFragments = append(c.issuerFragments, strings.ToUpper(f))
	}
	return c
}

// Classify walks the evidence in order (identifier, description, issuer, catalog)
// and returns the first decisive match, else Corporate.
func (c *Classifier) Classify(ev Evidence) Classification {
	if c.matchIdentifier(ev.Identifier) {
		return Classification{Class: convention.Treasury, Method: MethodIdentifierPrefix}
	}
	if c.matchDescription(ev.Description) {
		return Classification{Class: convention.Treasury, Method: MethodDescriptionKeyword}
	}
	if c.matchIssuer(ev.Issuer) {
		return Classification{Class: convention.Treasury, Method: MethodIssuerField}
	}
	if ev.CatalogClass != "" {
		return Classification{Class: ev.CatalogClass, Method: MethodCatalogRecord}
	}
	return Classification{Class: convention.Corporate, Method: MethodDefault}
}

// matchIdentifier accepts the prefix on the raw code or after a two letter ISIN
// country code (US912810..., DE0001...).
func (c *Classifier) matchIdentifier(id string) bool {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return false
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
		if len(id) > 2 && strings.HasPrefix(id[2:], p) {
			return true
		}
	}
	return false
}

func (c *Classifier) matchDescription(desc string) bool {
	words := strings.FieldsFunc(strings.ToUpper(desc), func(r rune) bool {
		return !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9')
	})
	if len(words) == 0 {
		return false
	}
	// A leading ticker only counts when something follows it; "B" alone is not a bond.
	if _, ok := c.leadingTokens[words[0]]; ok && len(words) > 1 {
		return true
	}
	for _, w := range words {
		if _, ok := c.keywords[w]; ok {
			return true
		}
	}
	return false
}

func (c *Classifier) matchIssuer(issuer string) bool {
	issuer = strings.ToUpper(issuer)
	if strings.TrimSpace(issuer) == "" {
		return false
	}
	for _, f := range c.issuerFragments {
		if strings.Contains(issuer, f) {
			return true
		}
	}
	return false
}
