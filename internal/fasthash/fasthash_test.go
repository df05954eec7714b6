package fasthash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesIsDeterministic(t *testing.T) {
	a := Bytes([]byte("hello world"))
	b := Bytes([]byte("hello world"))
	require.Equal(t, a, b)
}

func TestBytesDistinguishesInputs(t *testing.T) {
	require.NotEqual(t, Bytes([]byte("a")), Bytes([]byte("b")))
}

func TestStringMatchesBytes(t *testing.T) {
	require.Equal(t, Bytes([]byte("abcdefgh12345")), String("abcdefgh12345"))
}

func TestScalarIsDeterministic(t *testing.T) {
	require.Equal(t, Scalar(uint64(42)), Scalar(uint64(42)))
	require.NotEqual(t, Scalar(uint64(42)), Scalar(uint64(43)))
}

func TestDefaultHasherDispatch(t *testing.T) {
	var h Default[string]
	require.Equal(t, String("k"), h.Hash("k"))

	var hi Default[int]
	require.Equal(t, Scalar(7), hi.Hash(7))
}

func TestEmptyInputsDoNotPanic(t *testing.T) {
	require.NotPanics(t, func() {
		Bytes(nil)
		String("")
	})
}
