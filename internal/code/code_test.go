package code

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFind(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/IPX-156", "IPX-156"},
		{"https://jable.tv/videos/ipx-156/", "IPX-156"},
		{"[HD] abp_123 sample", "ABP-123"},
		{"FC2-PPV-1234567 uncensored", "FC2-PPV-1234567"},
		{"fc2ppv 1234567", "FC2-PPV-1234567"},
		{"SAMPLE123", ""},
		{"", ""},
		{"page 2", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Find(tc.in), tc.in)
	}
}

func TestFindAllKeepsOrderAndDedupes(t *testing.T) {
	got := findAll("SSIS-001 vs IPX-156, again ssis-001")
	assert.Equal(t, []string{"SSIS-001", "IPX-156"}, got)
}

func TestFindAllAdjacentCodes(t *testing.T) {
	assert.Equal(t, []string{"IPX-156", "ABP-123"}, findAll("IPX-156 ABP-123"))
	assert.Equal(t, []string{"IPX-156", "ABP-123"}, findAll("IPX-156,ABP-123"))
	assert.Empty(t, findAll("IPX-123456"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "IPX-156", Normalize("ipx156"))
	assert.Equal(t, "IPX-156", Normalize(" ipx-156 "))
	assert.Equal(t, "", Normalize("hello"))
	assert.True(t, Valid("IPX-156"))
	assert.False(t, Valid("ipx-156"))
}

func TestEqualAndContains(t *testing.T) {
	assert.True(t, Equal("ipx_156", "IPX-156"))
	assert.False(t, Equal("", ""))
	assert.True(t, Contains("/search/ipx156", "IPX-156"))
	assert.False(t, Contains("/search/ipx157", "IPX-156"))
}
