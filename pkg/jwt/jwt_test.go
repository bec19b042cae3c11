package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

func TestGenerateParse_RoundTrip(t *testing.T) {
	token, err := jwt.Generate("secret", "user-1", jwt.RoleAdmin, "stock-ledger", 5)
	require.NoError(t, err)

	userID, role, err := jwt.Parse("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, jwt.RoleAdmin, role)
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := jwt.Generate("secret", "user-1", jwt.RoleOperator, "stock-ledger", 5)
	require.NoError(t, err)

	_, _, err = jwt.Parse("other", token)
	assert.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	token, err := jwt.Generate("secret", "user-1", jwt.RoleOperator, "stock-ledger", -1)
	require.NoError(t, err)

	_, _, err = jwt.Parse("secret", token)
	assert.Error(t, err)
}

func TestEmptySecret(t *testing.T) {
	_, err := jwt.Generate("", "user-1", jwt.RoleOperator, "stock-ledger", 5)
	assert.Error(t, err)
	_, _, err = jwt.Parse("", "x.y.z")
	assert.Error(t, err)
}
