package casefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/verdict/internal/engine"
)

func TestFingerprint(t *testing.T) {
	base := engine.Descriptor{
		ID:       "TC-1",
		Title:    "Login works",
		Steps:    "1. Open app",
		Priority: engine.PriorityHigh,
	}

	fp, err := Fingerprint(base)
	require.NoError(t, err)
	assert.Len(t, fp, 64)

	renamed := base
	renamed.ID = "TC-99"
	fpRenamed, err := Fingerprint(renamed)
	require.NoError(t, err)
	assert.Equal(t, fp, fpRenamed, "id must not affect the fingerprint")

	edited := base
	edited.Steps = "1. Open app\n2. Close app"
	fpEdited, err := Fingerprint(edited)
	require.NoError(t, err)
	assert.NotEqual(t, fp, fpEdited)
}

func TestCanonicalize_StableKeyOrder(t *testing.T) {
	got, err := Canonicalize(engine.Descriptor{Title: "t", Steps: "s"})
	require.NoError(t, err)
	assert.Equal(t, `{"description":"","expected_result":"","priority":"","steps":"s","title":"t"}`, string(got))
}
