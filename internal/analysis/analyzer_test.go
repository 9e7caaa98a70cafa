package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaultsToAllBuiltins(t *testing.T) {
	as, err := Build(nil, Thresholds{})
	require.NoError(t, err)
	var names []string
	for _, a := range as {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"structure", "security", "performance"}, names)
	assert.Equal(t, names, Defaults())
}

func TestBuildOptInAnalyzer(t *testing.T) {
	assert.Contains(t, Names(), "testing")
	as, err := Build([]string{"testing", "structure"}, Thresholds{})
	require.NoError(t, err)
	require.Len(t, as, 2)
	assert.Equal(t, "structure", as[0].Name())
	assert.Equal(t, "testing", as[1].Name())
	_, ok := as[1].(ChangeSetAnalyzer)
	assert.True(t, ok)
}

func TestBuildKeepsRegistrationOrder(t *testing.T) {
	as, err := Build([]string{"performance", "Security"}, Thresholds{})
	require.NoError(t, err)
	require.Len(t, as, 2)
	assert.Equal(t, "security", as[0].Name())
	assert.Equal(t, "performance", as[1].Name())
}

func TestBuildUnknownAnalyzer(t *testing.T) {
	_, err := Build([]string{"spelling"}, Thresholds{})
	assert.ErrorContains(t, err, `unknown analyzer "spelling"`)
}

func TestBuildCustomAnalyzers(t *testing.T) {
	custom := &fakeAnalyzer{name: "custom"}
	as, err := Build([]string{"security", "custom"}, Thresholds{}, custom)
	require.NoError(t, err)
	require.Len(t, as, 2)
	assert.Equal(t, "custom", as[1].Name())

	_, err = Build(nil, Thresholds{}, &fakeAnalyzer{name: "security"})
	assert.ErrorContains(t, err, "registered twice")
}

func TestThresholdDefaults(t *testing.T) {
	got := Thresholds{MaxLineLength: 80}.withDefaults()
	assert.Equal(t, 80, got.MaxLineLength)
	assert.Equal(t, DefaultThresholds().MaxFileLines, got.MaxFileLines)
}
