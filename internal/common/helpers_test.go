package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "derp", NormalizeName("Derp"))
	assert.Equal(t, "derp", NormalizeName("  derp, "))
	assert.Equal(t, "derp", NormalizeName("@derp!"))
	assert.Equal(t, "peter.parker.min", NormalizeName("Peter.Parker.Min"))
	assert.Equal(t, "", NormalizeName("  ...  "))
}

func TestNormalizeReason(t *testing.T) {
	assert.Equal(t, "being awesome", NormalizeReason("Being  Awesome "))
	assert.Equal(t, "being awesome", NormalizeReason("being awesome"))
	assert.Equal(t, "", NormalizeReason("   "))
}

func TestReasonKeyRoundTrip(t *testing.T) {
	inputs := []string{
		"being awesome",
		"Fixing  the BUILD ",
		"reason.with.dots \"and quotes\"",
		"emoji 🎉 reason",
	}
	for _, in := range inputs {
		key := EncodeReasonKey(in)
		require.NotEmpty(t, key)

		got, err := DecodeReasonKey(key)
		require.NoError(t, err)
		assert.Equal(t, NormalizeReason(in), got)
	}
}

func TestEncodeReasonKeyEmpty(t *testing.T) {
	assert.Equal(t, "", EncodeReasonKey(""))
	assert.Equal(t, "", EncodeReasonKey("   "))

	got, err := DecodeReasonKey("")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestEncodeReasonKeyCollapsesVariants(t *testing.T) {
	// Different spellings of the same reason land in one bucket.
	assert.Equal(t, EncodeReasonKey("being awesome"), EncodeReasonKey("Being  Awesome "))
}

func TestEncodeRecipientKey(t *testing.T) {
	// Dotted names must survive as a single map field.
	key := EncodeRecipientKey("peter.parker.min")
	assert.NotContains(t, key, ".")
}
