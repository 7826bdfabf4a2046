package kv

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuards(t *testing.T) {
	as := require.New(t)

	as.ErrorIs(MustNotBeEmpty("key", ""), ErrInvalidArgument)
	as.NoError(MustNotBeEmpty("key", "k"))

	var e *Element
	as.ErrorIs(MustNotBeNil("element", nil), ErrInvalidArgument)
	as.ErrorIs(MustNotBeNil("element", e), ErrInvalidArgument)
	as.NoError(MustNotBeNil("element", &Element{}))

	as.ErrorIs(ValidateKey(""), ErrInvalidArgument)
	as.NoError(ValidateKey(strings.Repeat("k", MaxKeyLength)))
	as.NoError(ValidateKey(strings.Repeat("ü", MaxKeyLength)))
	as.ErrorIs(ValidateKey(strings.Repeat("k", MaxKeyLength+1)), ErrInvalidArgument)

	as.ErrorIs(ValidateElement(nil), ErrInvalidArgument)
	as.ErrorIs(ValidateElement(&Element{Key: "k"}), ErrInvalidArgument)
	as.NoError(ValidateElement(&Element{Key: "k", Value: "v"}))
}

func TestPrefixPattern(t *testing.T) {
	as := require.New(t)

	as.Equal("%", PrefixPattern(""))
	as.Equal("%", PrefixPattern("%"))
	as.Equal("Key/%", PrefixPattern("Key/"))
	as.Equal("Key/%", PrefixPattern("Key/%"))
	as.Equal(`a\_b%`, PrefixPattern("a_b"))
	as.Equal(`50\%off%`, PrefixPattern("50%off"))
	as.Equal(`c:\\dir%`, PrefixPattern(`c:\dir`))
}

func TestOpenErrors(t *testing.T) {
	as := require.New(t)

	as.False(IsOpenError(nil))
	as.False(IsOpenError(ErrInvalidArgument))
	as.False(IsOpenError(fmt.Errorf("%w: wrapped", ErrClosed)))

	for _, err := range []error{ErrNotADatabase, ErrCorrupt, ErrOpenFailed, ErrSchemaTooOld, ErrSchemaTooNew} {
		as.True(IsOpenError(err))
		as.True(IsOpenError(fmt.Errorf("%w: during open: %w", err, errors.New("cause"))))
	}
}

func TestCollect(t *testing.T) {
	as := require.New(t)

	seq := func(n int, failAt int) iter.Seq2[int, error] {
		return func(yield func(int, error) bool) {
			for i := 0; i < n; i++ {
				if i == failAt {
					yield(0, ErrInvalidState)
					return
				}
				if !yield(i, nil) {
					return
				}
			}
		}
	}

	out, err := Collect(seq(5, -1))
	as.NoError(err)
	as.Equal([]int{0, 1, 2, 3, 4}, out)

	out, err = Collect(seq(0, -1))
	as.NoError(err)
	as.Empty(out)

	_, err = Collect(seq(5, 3))
	as.ErrorIs(err, ErrInvalidState)
}
