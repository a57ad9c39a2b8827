package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleLoader_Memoizes(t *testing.T) {
	var built atomic.Int32
	loader := NewModuleLoader(map[string]ModuleFactory{
		"leads": func() (Module, error) {
			built.Add(1)
			time.Sleep(10 * time.Millisecond)
			return ModuleFunc(func(context.Context, *TabContext) (Section, error) { return Section{}, nil }), nil
		},
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := loader.Get(context.Background(), "leads")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err := loader.Get(context.Background(), "leads")
	require.NoError(t, err)
	assert.Equal(t, int32(1), built.Load())
	assert.True(t, loader.Loaded("leads"))
}

func TestModuleLoader_Unknown(t *testing.T) {
	loader := NewModuleLoader(nil)
	_, err := loader.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownModule)
}

func TestModuleLoader_FactoryErrorIsNotCached(t *testing.T) {
	calls := 0
	loader := NewModuleLoader(map[string]ModuleFactory{
		"flaky": func() (Module, error) {
			calls++
			if calls == 1 {
				return nil, errBoom
			}
			return ModuleFunc(func(context.Context, *TabContext) (Section, error) { return Section{}, nil }), nil
		},
	})

	_, err := loader.Get(context.Background(), "flaky")
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, loader.Loaded("flaky"))

	_, err = loader.Get(context.Background(), "flaky")
	assert.NoError(t, err)
}
