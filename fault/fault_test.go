package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsWrapSentinels(t *testing.T) {
	err := Validationf("shares must sum to %d, got %d", 10000, 9000)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "validation error: shares must sum to 10000, got 9000", err.Error())

	assert.True(t, errors.Is(Permissionf("nope"), ErrPermission))
	assert.True(t, errors.Is(NotFoundf("project %s", "p1"), ErrNotFound))
	assert.True(t, errors.Is(InvalidStatef("track is failed"), ErrInvalidState))
	assert.True(t, errors.Is(AlreadyMemberf("bob"), ErrAlreadyMember))
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{Validationf("bad"), "validation_error"},
		{Permissionf("no"), "permission_error"},
		{NotFoundf("missing"), "not_found"},
		{InvalidStatef("stuck"), "invalid_state"},
		{AlreadyMemberf("dup"), "already_member"},
		{errors.New("disk on fire"), "storage_error"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Kind(tc.err))
	}
}

func TestKindSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("rebalance rejected: %w", Permissionf("only the owner may rebalance"))
	assert.Equal(t, "permission_error", Kind(err))
}
