package cloud

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/cloudtest/pkg/framework"
)

type testCall struct {
	name, arg string
	result    *int
	err       error
}

func (c *testCall) Function() string { return c.name }
func (c *testCall) Arg() string      { return c.arg }
func (c *testCall) Done(result int) error {
	c.result = &result
	return nil
}
func (c *testCall) Fail(err error) error {
	c.err = err
	return nil
}

func TestFunctionsRegister(t *testing.T) {
	f := NewFunctions()
	require.NoError(t, f.Function("digitalread", func(string) int { return 0 }))
	require.Error(t, f.Function("", func(string) int { return 0 }))
	require.Error(t, f.Function("averyveryverylongname", func(string) int { return 0 }))
	for i := 1; i < MaxFunctions; i++ {
		require.NoError(t, f.Function(fmt.Sprintf("fn%d", i), func(string) int { return 0 }))
	}
	require.Len(t, f.Names(), MaxFunctions)
	require.Error(t, f.Function("onemore", func(string) int { return 0 }))
	// replacing an existing one is still allowed.
	require.NoError(t, f.Function("digitalread", func(string) int { return 1 }))
}

func TestFunctionsControl(t *testing.T) {
	f := NewFunctions()
	require.NoError(t, f.Function("echo", func(arg string) int { return len(arg) }))
	l := fx.NewLoop().Add(f)

	ok := &testCall{name: "echo", arg: "D7 HIGH"}
	unknown := &testCall{name: "nope"}
	l.PostMessage(&CallMsg{Call: ok})
	l.PostMessage(&CallMsg{Call: unknown})
	l.Iterate(context.Background())

	require.NotNil(t, ok.result)
	require.Equal(t, 7, *ok.result)
	require.Nil(t, unknown.result)
	var unknownErr *ErrUnknownFunction
	require.True(t, errors.As(unknown.err, &unknownErr))
	require.Equal(t, "nope", unknownErr.Name)
}

func TestScopeString(t *testing.T) {
	require.Equal(t, "private", Private.String())
	require.Equal(t, "public", Public.String())
}
