package clip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadlessBackend(t *testing.T) {
	b := NewHeadless()
	defer b.Close()

	assert.Equal(t, "headless (no-op)", b.Name())

	c, err := b.Read()
	require.NoError(t, err)
	assert.Nil(t, c.Text)
	assert.Nil(t, c.Image)

	assert.ErrorIs(t, b.WriteText("x"), ErrUnavailable)
	assert.ErrorIs(t, b.WriteImage([]byte{1}), ErrUnavailable)
	assert.ErrorIs(t, b.WriteHTML("<b>x</b>", "x"), ErrUnavailable)
}
