package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeComponent records start/stop calls into a shared journal so
// tests can assert ordering across components.
type fakeComponent struct {
	name     string
	startErr error
	journal  *[]string
}

func (f *fakeComponent) Start(_ context.Context) error {
	*f.journal = append(*f.journal, "start:"+f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(_ context.Context) error {
	*f.journal = append(*f.journal, "stop:"+f.name)
	return nil
}

func (f *fakeComponent) Name() string {
	return f.name
}

func TestManagerStartsInDependencyOrder(t *testing.T) {
	journal := []string{}
	store := &fakeComponent{name: "store", journal: &journal}
	watcher := &fakeComponent{name: "watcher", journal: &journal}
	server := &fakeComponent{name: "server", journal: &journal}

	m := NewManager()
	require.NoError(t, m.Register(store))
	require.NoError(t, m.Register(watcher, store))
	require.NoError(t, m.Register(server, store, watcher))

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, []string{"start:store", "start:watcher", "start:server"}, journal)

	require.NoError(t, m.Stop(context.Background()))
	assert.Equal(t, []string{
		"start:store", "start:watcher", "start:server",
		"stop:server", "stop:watcher", "stop:store",
	}, journal)
}

func TestManagerRollsBackOnStartFailure(t *testing.T) {
	journal := []string{}
	store := &fakeComponent{name: "store", journal: &journal}
	broken := &fakeComponent{name: "broken", startErr: errors.New("bind failed"), journal: &journal}

	m := NewManager()
	require.NoError(t, m.Register(store))
	require.NoError(t, m.Register(broken, store))

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	// The component that did start is stopped again.
	assert.Equal(t, []string{"start:store", "start:broken", "stop:store"}, journal)
	assert.False(t, m.IsRunning(store))
}

func TestManagerRegisterValidation(t *testing.T) {
	m := NewManager()
	journal := []string{}
	a := &fakeComponent{name: "a", journal: &journal}
	b := &fakeComponent{name: "b", journal: &journal}

	assert.Error(t, m.Register(nil), "nil component")
	assert.Error(t, m.Register(a, b), "unregistered dependency")

	require.NoError(t, m.Register(a))
	assert.Error(t, m.Register(a), "duplicate registration")

	require.NoError(t, m.Register(b, a))
	assert.Error(t, m.Register(a, b), "re-registration rejected")
}
