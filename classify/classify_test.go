package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meenmo/fixedincome/convention"
)

func TestClassify_EvidenceOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ev     Evidence
		class  convention.InstrumentClass
		method Method
	}{
		{"cusip prefix", Evidence{Identifier: "912810TL2"}, convention.Treasury, MethodIdentifierPrefix},
		{"us isin prefix", Evidence{Identifier: "US91282CJZ59"}, convention.Treasury, MethodIdentifierPrefix},
		{"bund isin", Evidence{Identifier: "DE0001102580"}, convention.Treasury, MethodIdentifierPrefix},
		{"prefix beats corporate catalog class", Evidence{Identifier: "US912810TL26", CatalogClass: convention.Corporate}, convention.Treasury, MethodIdentifierPrefix},
		{"leading ticker", Evidence{Identifier: "XS0000000001", Description: "T 3 15/08/52"}, convention.Treasury, MethodDescriptionKeyword},
		{"keyword anywhere", Evidence{Description: "US TREASURY N/B 4.25% 2035"}, convention.Treasury, MethodDescriptionKeyword},
		{"keyword is case insensitive", Evidence{Description: "uk gilt 4.5 07/12/42"}, convention.Treasury, MethodDescriptionKeyword},
		{"ticker substring is not a token", Evidence{Description: "TESLA 5 01/01/30"}, convention.Corporate, MethodDefault},
		{"lone token is not enough", Evidence{Description: "B"}, convention.Corporate, MethodDefault},
		{"issuer field", Evidence{Description: "ROK 2 1/2 06/19/29", Issuer: "Republic of Korea"}, convention.Treasury, MethodIssuerField},
		{"catalog class", Evidence{Identifier: "XS123", CatalogClass: convention.Treasury}, convention.Treasury, MethodCatalogRecord},
		{"default corporate", Evidence{Identifier: "US0378331005", Description: "AAPL 3.45 02/09/45", Issuer: "APPLE INC"}, convention.Corporate, MethodDefault},
		{"empty evidence", Evidence{}, convention.Corporate, MethodDefault},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Default.Classify(tc.ev)
			assert.Equal(t, tc.class, got.Class)
			assert.Equal(t, tc.method, got.Method)
		})
	}
}

func TestClassify_CustomPrefixes(t *testing.T) {
	t.Parallel()

	c := New(Options{IdentifierPrefixes: []string{"KR103502"}})
	got := c.Classify(Evidence{Identifier: "KR103502GE96"})
	assert.Equal(t, Classification{Class: convention.Treasury, Method: MethodIdentifierPrefix}, got)

	got = c.Classify(Evidence{Identifier: "912810TL2"})
	assert.Equal(t, MethodDefault, got.Method)
}
