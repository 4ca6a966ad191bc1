package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidCid(t *testing.T) {
	tests := []struct {
		description string
		cid         string
		expected    bool
	}{
		{
			description: "cid v0",
			cid:         "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
			expected:    true,
		},
		{
			description: "cid v1",
			cid:         "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi",
			expected:    true,
		},
		{
			description: "arbitrary string",
			cid:         "not-a-cid",
			expected:    false,
		},
		{
			description: "empty string",
			cid:         "",
			expected:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			record := CipherRecord{Cid: tt.cid}
			require.Equal(t, tt.expected, record.ValidCid())
		})
	}
}

func TestCidSet(t *testing.T) {
	set := NewCidSet([]CipherRecord{
		{Cid: "c1"}, {Cid: "c2"}, {Cid: "c1"},
	})
	require.Len(t, set, 2)
	require.True(t, set.Has("c1"))
	require.True(t, set.Has("c2"))
	require.False(t, set.Has("c3"))

	set.Add("c3")
	require.True(t, set.Has("c3"))

	empty := NewCidSet(nil)
	require.Empty(t, empty)
	require.False(t, empty.Has("c1"))
}
