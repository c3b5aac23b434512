package adapter

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sjsage522/metaworker/logger"
)

func TestRegistryFromConfig(t *testing.T) {
	reg, err := NewRegistryFromConfig(testConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"javbus", "javdb", "javlibrary", "jable", "missav", "sukebei", "btsow", "generic"}, reg.SourceIDs())
	assert.Equal(t, "javdb", reg.Get("JavDB").SourceID())
	assert.Equal(t, GenericSourceID, reg.Get("unknown-site").SourceID())
	assert.Same(t, reg.Get("jable"), reg.Get("jable"))
}

func TestRegistryLazyConstructionAndReload(t *testing.T) {
	var built int32
	reg, err := NewRegistry(RegistryOptions{
		Constructors: map[string]Constructor{
			"javbus": func() (SiteAdapter, error) {
				atomic.AddInt32(&built, 1)
				return NewConfigurableAdapter(javbusConfig("https://www.javbus.com"))
			},
		},
		Generic: func() (SiteAdapter, error) { return NewGenericAdapter(5) },
		Logger:  logger.Nop(),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&built))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Get("javbus")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&built))

	first := reg.Get("javbus")
	assert.True(t, reg.Reload("javbus"))
	second := reg.Get("javbus")
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&built))

	assert.False(t, reg.Reload("nope"))
	assert.True(t, reg.Reload("generic"))
}

func TestRegistryFallsBackWhenNamedAdapterFails(t *testing.T) {
	reg, err := NewRegistry(RegistryOptions{
		Constructors: map[string]Constructor{
			"javdb": func() (SiteAdapter, error) { return NewConfigurableAdapter(SiteConfig{}) },
		},
		Generic: func() (SiteAdapter, error) { return NewGenericAdapter(5) },
		Logger:  logger.Nop(),
	})
	require.NoError(t, err)
	assert.Equal(t, GenericSourceID, reg.Get("javdb").SourceID())

	_, err = reg.Construct("javdb")
	assert.Error(t, err)
}

func TestRegistryGenericFailureIsFatal(t *testing.T) {
	_, err := NewRegistry(RegistryOptions{
		Generic: func() (SiteAdapter, error) { return NewGenericAdapter(0) },
	})
	assert.Error(t, err)

	_, err = NewRegistry(RegistryOptions{})
	assert.Error(t, err)
}

func TestDetectSource(t *testing.T) {
	reg, err := NewRegistryFromConfig(testConfig())
	require.NoError(t, err)

	assert.Equal(t, "javbus", reg.DetectSource("https://www.javbus.com/IPX-156", ""))
	assert.Equal(t, "javbus", reg.DetectSource("https://www.buscdn.cfd/IPX-156", ""))
	assert.Equal(t, "javdb", reg.DetectSource("https://javdb565.com/v/abc", ""))
	assert.Equal(t, "sukebei", reg.DetectSource("https://sukebei.nyaa.si/view/1", ""))
	assert.Equal(t, "missav", reg.DetectSource("https://example.com/x", "missav"))
	assert.Equal(t, GenericSourceID, reg.DetectSource("https://example.com/x", "bogus"))
	assert.Equal(t, GenericSourceID, reg.DetectSource("not a url", ""))
}
