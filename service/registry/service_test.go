package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/emberd/ember/sandbox"
	"github.com/emberd/ember/sandbox/sandboxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	return New(sandboxtest.New(), sandbox.HostTable{})
}

func TestService_Register(t *testing.T) {
	service := newService()
	ctx := context.Background()

	id, err := service.Register(ctx, []byte("return 1"))
	require.NoError(t, err)
	assert.Equal(t, ModuleID(1), id)
	assert.True(t, service.Exists(id))
	assert.Equal(t, 1, service.Len())

	template, err := service.Template(id)
	require.NoError(t, err)
	assert.NotNil(t, template)
}

func TestService_RegisterCompilationFailure(t *testing.T) {
	service := newService()

	_, err := service.Register(context.Background(), []byte("bogus directive"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compilation failed")
	// A failed registration must not claim storage.
	assert.Equal(t, 0, service.Len())
}

func TestService_TemplateUnknownModule(t *testing.T) {
	service := newService()

	_, err := service.Template(ModuleID(99))
	assert.True(t, errors.Is(err, ErrUnknownModule))
	assert.False(t, service.Exists(ModuleID(99)))
}

func TestService_ConcurrentRegistrations(t *testing.T) {
	const registrations = 200

	service := newService()
	ids := make(chan ModuleID, registrations)
	var wg sync.WaitGroup
	for i := 0; i < registrations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := service.Register(context.Background(), []byte("return 1"))
			if err != nil {
				t.Errorf("register: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[ModuleID]bool{}
	for id := range ids {
		assert.False(t, seen[id], "module id %d issued twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, registrations)
	assert.Equal(t, registrations, service.Len())

	// Every issued id resolves to a template.
	for id := range seen {
		_, err := service.Template(id)
		assert.NoError(t, err)
	}
}
