package director

import (
	"testing"

	"github.com/YiuTerran/go-director/network/datagram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	raw, err := BuildMessage([]Channel{100, 200}, 5, 42, []byte("hello"))
	require.NoError(t, err)
	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, []Channel{100, 200}, msg.Dests)
	assert.EqualValues(t, 5, msg.Sender)
	assert.EqualValues(t, 42, msg.Type)
	assert.Equal(t, []byte("hello"), msg.Body)
	assert.Equal(t, raw, msg.Raw())
	assert.False(t, msg.IsControl())
}

func TestMessageCapacityBoundary(t *testing.T) {
	// 1 + 8 + 8 + 2 = 19字节头
	header := 1 + datagram.ChannelSize*2 + 2
	raw, err := BuildMessage([]Channel{1}, 0, 0, make([]byte, datagram.MaxSize-header))
	require.NoError(t, err)
	assert.Len(t, raw, datagram.MaxSize)

	_, err = BuildMessage([]Channel{1}, 0, 0, make([]byte, datagram.MaxSize-header+1))
	assert.ErrorIs(t, err, datagram.ErrCapacityExceeded)

	_, err = BuildMessage(make([]Channel, MaxDestinations+1), 0, 0, nil)
	assert.ErrorIs(t, err, ErrTooManyDestinations)
}

func TestIsControl(t *testing.T) {
	tests := []struct {
		dests []Channel
		want  bool
	}{
		{[]Channel{1}, true},
		{[]Channel{1, 1}, true},
		{[]Channel{1, 2}, false},
		{[]Channel{2}, false},
		{nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, (&Message{Dests: tt.dests}).IsControl(), "%v", tt.dests)
	}
}

func TestParseTruncated(t *testing.T) {
	raw, err := BuildMessage([]Channel{100}, 5, 42, nil)
	require.NoError(t, err)
	for i := 0; i < len(raw); i++ {
		_, err := ParseMessage(raw[:i])
		assert.True(t, datagram.IsDecodeError(err), "len %d", i)
	}
}

func TestControlName(t *testing.T) {
	assert.Equal(t, "set_channel", ControlName(ControlSetChannel))
	assert.Equal(t, "unknown(7)", ControlName(7))
}
