package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV(t *testing.T) {
	t.Parallel()

	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092, ,b:9092 "))
}

func TestEnvDefault(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_KEY", "  value ")
	assert.Equal(t, "value", EnvDefault("STOREFRONT_TEST_KEY", "def"))
	assert.Equal(t, "def", EnvDefault("STOREFRONT_TEST_UNSET", "def"))
}

func TestEnvIntDefault(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_INT", "24")
	t.Setenv("STOREFRONT_TEST_BAD_INT", "twenty")

	assert.Equal(t, 24, EnvIntDefault("STOREFRONT_TEST_INT", 18))
	assert.Equal(t, 18, EnvIntDefault("STOREFRONT_TEST_BAD_INT", 18))
	assert.Equal(t, 18, EnvIntDefault("STOREFRONT_TEST_UNSET", 18))
}

func TestEnvDurationDefault(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_DUR", "250ms")
	t.Setenv("STOREFRONT_TEST_SECS", "3")
	t.Setenv("STOREFRONT_TEST_BAD_DUR", "soon")

	assert.Equal(t, 250*time.Millisecond, EnvDurationDefault("STOREFRONT_TEST_DUR", time.Second))
	assert.Equal(t, 3*time.Second, EnvDurationDefault("STOREFRONT_TEST_SECS", time.Second))
	assert.Equal(t, time.Second, EnvDurationDefault("STOREFRONT_TEST_BAD_DUR", time.Second))
}

func TestRequired(t *testing.T) {
	t.Parallel()

	require.NoError(t, Required(map[string]string{"A": "x"}))

	err := Required(map[string]string{"B": "", "A": " ", "C": "ok"})
	require.Error(t, err)
	assert.Equal(t, "missing required env A, B", err.Error())
}
