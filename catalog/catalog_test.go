package catalog_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/fixedincome/catalog"
	"github.com/meenmo/fixedincome/convention"
)

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	snap, err := catalog.LoadYAML("testdata/catalog.yaml")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len())

	rec, err := snap.Lookup("  us912810tl26 ")
	require.NoError(t, err)
	require.NotNil(t, rec.CouponRate)
	assert.InDelta(t, 0.03, *rec.CouponRate, 1e-12)
	assert.Equal(t, time.Date(2052, 8, 15, 0, 0, 0, 0, time.UTC), rec.MaturityDate)
	assert.Equal(t, convention.ActActICMA, rec.DayCount)
	assert.Equal(t, convention.Semiannual, rec.Frequency)
	assert.Equal(t, convention.Treasury, rec.Class)
	assert.Equal(t, 1, rec.SettlementLagDays)
	assert.True(t, rec.HasTerms())

	bare, err := snap.Lookup("US0378331005")
	require.NoError(t, err)
	assert.False(t, bare.HasTerms())
	assert.False(t, bare.HasConventions())
	assert.Equal(t, -1, bare.SettlementLagDays)
}

func TestSnapshot_LookupMiss(t *testing.T) {
	t.Parallel()

	snap, err := catalog.NewSnapshot(nil)
	require.NoError(t, err)

	_, err = snap.Lookup("US0000000000")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	var nilSnap *catalog.Snapshot
	_, err = nilSnap.Lookup("anything")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestSnapshot_LookupIssuer(t *testing.T) {
	t.Parallel()

	snap, err := catalog.LoadYAML("testdata/catalog.yaml")
	require.NoError(t, err)

	rec, err := snap.LookupIssuer("galaxy  pipeline assets")
	require.NoError(t, err)
	assert.Equal(t, "XS2241090088", rec.Identifier)
	assert.Equal(t, convention.Thirty360, rec.DayCount)

	_, err = snap.LookupIssuer("UNKNOWN ISSUER")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestNewSnapshot_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := catalog.NewSnapshot([]catalog.Record{
		{Identifier: "ABC", SettlementLagDays: -1},
		{Identifier: "abc", SettlementLagDays: -1},
	})
	assert.Error(t, err)
}

func TestNewSnapshot_RejectsInvalidRecord(t *testing.T) {
	t.Parallel()

	coupon := 3.0 // percent passed where a fraction is expected
	_, err := catalog.NewSnapshot([]catalog.Record{{Identifier: "ABC", CouponRate: &coupon}})
	assert.Error(t, err)
}

func TestEncodeYAML_RoundTrip(t *testing.T) {
	t.Parallel()

	snap, err := catalog.LoadYAML("testdata/catalog.yaml")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, catalog.EncodeYAML(&buf, snap.Records()))

	records, err := catalog.DecodeYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap.Records(), records)
}
