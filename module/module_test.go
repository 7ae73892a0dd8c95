package module

import (
	"errors"
	"sync"
	"testing"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordMod struct {
	name    string
	initErr error
	mu      *sync.Mutex
	events  *[]string
}

func (r *recordMod) record(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.events = append(*r.events, r.name+":"+e)
}

func (r *recordMod) Name() string { return r.name }

func (r *recordMod) OnInit() error {
	r.record("init")
	return r.initErr
}

func (r *recordMod) OnDestroy() { r.record("destroy") }

func (r *recordMod) Run(closeSig chan struct{}) { <-closeSig }

func TestManagerOrder(t *testing.T) {
	var mu sync.Mutex
	var events []string
	m := NewManager(log.Nop())
	require.NoError(t, m.StaticLoad([]Module{
		&recordMod{name: "a", mu: &mu, events: &events},
		&recordMod{name: "b", mu: &mu, events: &events},
	}))
	m.Destroy()
	assert.Equal(t, []string{"a:init", "b:init", "b:destroy", "a:destroy"}, events)
}

func TestManagerInitFailure(t *testing.T) {
	var mu sync.Mutex
	var events []string
	boom := errors.New("boom")
	m := NewManager(nil)
	err := m.StaticLoad([]Module{
		&recordMod{name: "a", mu: &mu, events: &events},
		&recordMod{name: "b", mu: &mu, events: &events, initErr: boom},
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a:init", "b:init", "a:destroy"}, events)
}
