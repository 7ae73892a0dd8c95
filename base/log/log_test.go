package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields(t *testing.T) {
	f := Fields{"b": 2, "a": 1}.WithPrefix("tcp")
	assert.Equal(t, "[tcp] a=1 b=2", f.String())
	assert.Equal(t, "tcp", f.Prefix())

	merged := f.WithFields(Fields{"a": 3})
	assert.Equal(t, 3, merged["a"])
	assert.Equal(t, 1, f["a"])
}

func TestParse(t *testing.T) {
	assert.Equal(t, LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, NormalOut|ConsoleOut, OutTypeAlias("file | console"))
	assert.Equal(t, ConsoleOut, OutTypeAlias("nothing"))
}

func TestBuildFileLogger(t *testing.T) {
	dir := t.TempDir()
	l, err := NewBuilder().Name("director").Path(dir).Level(LevelInfo).OutType(NormalOut).Build()
	require.NoError(t, err)

	l.With(Fields{}.WithPrefix("session")).Info("hello %d", 1)
	l.Debug("hidden")
	l.Error("broken")
	l.ChangeLogLevel(LevelDebug)
	assert.True(t, l.IsDebugEnabled())
	require.NoError(t, l.Close())

	b, err := os.ReadFile(filepath.Join(dir, "director.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "[session]")
	assert.Contains(t, string(b), "hello 1")
	assert.NotContains(t, string(b), "hidden")

	b, err = os.ReadFile(filepath.Join(dir, "director-error.log"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "broken"))
	assert.NotContains(t, string(b), "hello")
}

func TestNop(t *testing.T) {
	l := Nop().With(Fields{"a": 1})
	l.Info("nothing")
	assert.NoError(t, l.Sync())
}
