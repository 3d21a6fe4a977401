package util

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingBuffer_WrapsAndKeepsNewest(t *testing.T) {
	req := require.New(t)
	r := NewRingBuffer[int](3)

	req.Empty(r.Snapshot())
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	req.Equal(3, r.Len())
	req.Equal([]int{3, 4, 5}, r.Snapshot())
	req.Equal([]int{4, 5}, r.Last(2))
	req.Equal([]int{3, 4, 5}, r.Last(10))
	req.Empty(r.Last(0))
}

func TestSecretFileRoundTrip(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "data", "token")

	got, err := ReadSecretFile(path)
	req.NoError(err)
	req.Empty(got)

	req.NoError(WriteSecretFile(path, "  abc.def.ghi \n"))
	got, err = ReadSecretFile(path)
	req.NoError(err)
	req.Equal("abc.def.ghi", got)
}

func TestResolvePath(t *testing.T) {
	req := require.New(t)
	req.Equal(filepath.Join("base", "data", "x.db"), ResolvePath("base", "data/x.db"))
	abs := filepath.Join(t.TempDir(), "x.db")
	req.Equal(abs, ResolvePath("base", abs))
}
