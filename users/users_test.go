package users_test

import (
	"testing"

	"github.com/jrsteele09/go-hr-admin/users"
	fakeuserrepo "github.com/jrsteele09/go-hr-admin/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestCanUseDashboard(t *testing.T) {
	tests := []struct {
		role    users.RoleType
		allowed bool
	}{
		{users.RoleAdmin, true},
		{users.RoleOwner, true},
		{users.RoleManager, true},
		{users.RoleColeader, false},
		{users.RoleMember, false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			u := &users.User{Role: tt.role}
			require.Equal(t, tt.allowed, u.CanUseDashboard())
		})
	}

	var nilUser *users.User
	require.False(t, nilUser.CanUseDashboard())
}

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("s3cret-Pass")
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash("s3cret-Pass", hash))
	require.False(t, users.CheckPasswordHash("wrong", hash))
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	require.NoError(t, repo.Upsert(&users.User{Email: "b@example.com", Role: users.RoleAdmin}, "hash-b"))
	require.NoError(t, repo.Upsert(&users.User{Email: "a@example.com", Role: users.RoleMember}, "hash-a"))

	u, hash, err := repo.GetByEmail("b@example.com")
	require.NoError(t, err)
	require.Equal(t, "hash-b", hash)
	require.NotEmpty(t, u.ID)
	require.NotEmpty(t, u.AuthID)

	byID, err := repo.GetByID(u.ID)
	require.NoError(t, err)
	require.Equal(t, "b@example.com", byID.Email)

	list, err := repo.List(0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a@example.com", list[0].Email)

	list, err = repo.List(1, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "b@example.com", list[0].Email)

	require.NoError(t, repo.Delete("a@example.com"))
	_, _, err = repo.GetByEmail("a@example.com")
	require.Error(t, err)
}
