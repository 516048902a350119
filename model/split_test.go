package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentToBasisPoints(t *testing.T) {
	cases := []struct {
		percent float64
		want    int64
	}{
		{0, 0},
		{100, 10000},
		{60, 6000},
		{33.33, 3333},
		{33.335, 3334}, // half rounds up
		{0.01, 1},
		{0.004, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PercentToBasisPoints(tc.percent), "percent=%v", tc.percent)
	}
}

func TestSplitEntryPercent(t *testing.T) {
	assert.Equal(t, 60.0, SplitEntry{IdentityID: "alice", BasisPoints: 6000}.Percent())
	assert.Equal(t, 33.33, SplitEntry{IdentityID: "bob", BasisPoints: 3333}.Percent())
}

func TestSplitEntryListScanValue(t *testing.T) {
	list := SplitEntryList{
		{IdentityID: "alice", BasisPoints: 6000},
		{IdentityID: "bob", BasisPoints: 4000},
	}

	value, err := list.Value()
	require.NoError(t, err)

	var scanned SplitEntryList
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, list, scanned)

	// Nil list round-trips to nil.
	var empty SplitEntryList
	value, err = empty.Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	var fromNil SplitEntryList
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)

	var fromNullString SplitEntryList
	require.NoError(t, fromNullString.Scan("null"))
	assert.Nil(t, fromNullString)
}
