package index

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInitialState(t *testing.T) {
	r := NewRegistry()
	ix, state, release := r.Get(1)
	defer release()

	assert.Nil(t, ix)
	assert.Equal(t, StateNoIndex, state)
}

func TestRegistryUpdateToReady(t *testing.T) {
	r := NewRegistry()
	want := &Index{UserID: 1}

	err := r.Update(1, func() (*Index, error) { return want, nil })
	require.NoError(t, err)

	ix, state, release := r.Get(1)
	defer release()
	assert.Same(t, want, ix)
	assert.Equal(t, StateReady, state)
}

func TestRegistryUpdateNilResetsToNoIndex(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Update(1, func() (*Index, error) { return &Index{UserID: 1}, nil }))
	require.NoError(t, r.Update(1, func() (*Index, error) { return nil, nil }))

	ix, state, release := r.Get(1)
	defer release()
	assert.Nil(t, ix)
	assert.Equal(t, StateNoIndex, state)
}

func TestRegistryUpdateErrorKeepsPreviousEntry(t *testing.T) {
	r := NewRegistry()
	want := &Index{UserID: 1}
	require.NoError(t, r.Update(1, func() (*Index, error) { return want, nil }))

	err := r.Update(1, func() (*Index, error) { return nil, errors.New("rebuild failed") })
	require.Error(t, err)

	ix, state, release := r.Get(1)
	defer release()
	assert.Same(t, want, ix, "failed update must not clobber the resident index")
	assert.Equal(t, StateReady, state)
}

func TestRegistryReadersBlockDuringUpdate(t *testing.T) {
	r := NewRegistry()
	updating := make(chan struct{})
	proceed := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = r.Update(1, func() (*Index, error) {
			close(updating)
			<-proceed
			return &Index{UserID: 1}, nil
		})
	}()

	<-updating
	close(proceed)

	// Get blocks until the update releases the write lock, so a reader can
	// never observe StateLoading mid-rebuild.
	ix, state, release := r.Get(1)
	release()
	wg.Wait()

	assert.NotNil(t, ix)
	assert.Equal(t, StateReady, state)
}

func TestRegistryIsolatesUsers(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Update(1, func() (*Index, error) { return &Index{UserID: 1}, nil }))

	ix, state, release := r.Get(2)
	defer release()
	assert.Nil(t, ix)
	assert.Equal(t, StateNoIndex, state)
}
