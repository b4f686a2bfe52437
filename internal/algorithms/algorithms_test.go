package algorithms

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	require := require.New(t)
	require.Equal([]string{}, Map([]int(nil), strconv.Itoa))
	require.Equal([]string{"1", "2", "3"}, Map([]int{1, 2, 3}, strconv.Itoa))
}

func TestFilter(t *testing.T) {
	require := require.New(t)
	scopes := []string{
		"https://fedinode.test/users/alice/followers",
		"https://fedinode.test/users/alice/close-friends",
		"https://fedinode.test/users/alice/followers",
	}
	followers := func(s string) bool { return s == scopes[0] }
	require.Equal([]string{scopes[0], scopes[2]}, Filter(scopes, followers))
	require.Equal([]string{}, Filter([]string(nil), followers))
}
