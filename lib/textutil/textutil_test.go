package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContainsAny(t *testing.T) {
	words := []string{"token", "login", "登录"}

	require.True(t, ContainsAny("Access Token is invalid", words))
	require.True(t, ContainsAny("accessTOKEN expired", words))
	require.True(t, ContainsAny("log in again", words))
	require.True(t, ContainsAny("请重新登录", words))
	require.False(t, ContainsAny("permission denied for region", words))
}

func TestCollapseSpaces(t *testing.T) {
	require.Equal(t, "COROS Training Hub", CollapseSpaces("\n  COROS \t Training\n\nHub  "))
	require.Equal(t, "", CollapseSpaces(" \n "))
}
