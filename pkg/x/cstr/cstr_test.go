package cstr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAtoi(t *testing.T) {
	testCases := []struct {
		in     string
		expect int
	}{
		{"", 0},
		{"5", 5},
		{"  42", 42},
		{"-7", -7},
		{"+30", 30},
		{"12abc", 12},
		{"abc", 0},
		{"- 3", 0},
		{"99999999999", 2147483647},
		{"-99999999999", -2147483648},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			require.Equal(t, tc.expect, Atoi(tc.in))
		})
	}
}

func TestSubstring(t *testing.T) {
	require.Equal(t, "HIGH", Substring("D7 HIGH", 3, 7))
	require.Equal(t, "LO", Substring("D7 LO", 3, 6))
	require.Equal(t, "", Substring("D7", 3, 7))
	require.Equal(t, "", Substring("D7 X", 5, 2))
}

func TestCharAt(t *testing.T) {
	require.Equal(t, byte('7'), CharAt("D7", 1))
	require.Equal(t, byte(0), CharAt("D", 1))
}
