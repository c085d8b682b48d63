package boardtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for in, want := range map[string]Type{"free": Free, "freeboard": Free, "code": Code, "CODE": Code} {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
		assert.True(t, got.Valid())
	}

	_, err := Parse("qna")
	assert.Error(t, err)
	assert.False(t, Type("qna").Valid())
}
