package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReference(t *testing.T) {
	valid := []string{"pkg.mod:func", "pkg.mod.func", "hello", "a.b:c.d", "my-tool.cli:main"}
	for _, ref := range valid {
		assert.NoError(t, ValidateReference(ref), ref)
	}

	invalid := []string{"", "   ", "!!!not valid!!!", "this is bogus!", "a:b:c", ":main", "pkg:"}
	for _, ref := range invalid {
		err := ValidateReference(ref)
		require.Error(t, err, ref)

		var verr *ValidationError
		assert.True(t, errors.As(err, &verr))
	}
}

func TestSplitDotted(t *testing.T) {
	parts, err := SplitDotted("module", "pkg.sub.mod")
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg", "sub", "mod"}, parts)

	_, err = SplitDotted("module", "pkg..mod")
	assert.Error(t, err)
}
