package access

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skydish/internal/models"
)

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) GetUser(_ context.Context, id string) (*models.User, error) {
	return f.users[id], nil
}

func approvedUser(id string, roles ...models.RoleName) *models.User {
	u := &models.User{ID: id}
	for _, r := range roles {
		u.Roles = append(u.Roles, models.Role{Name: r, Approved: true})
	}
	return u
}

func newTestGuard(users ...*models.User) *Guard {
	src := &fakeUsers{users: make(map[string]*models.User)}
	for _, u := range users {
		src.users[u.ID] = u
	}
	return NewGuard(src, zerolog.New(io.Discard))
}

func TestGuardUnauthenticated(t *testing.T) {
	guard := newTestGuard()
	invoked := false

	report, err := guard.Run(context.Background(),
		Caller{Authenticated: false},
		Capability{AnyOf: []models.RoleName{models.RoleResearcher}},
		"",
		func(context.Context) error { invoked = true; return nil },
	)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, []models.RoleName{models.RoleUser}, report.MissingRoles)
	assert.False(t, invoked, "wrapped operation must not run on denial")
}

func TestGuardMissingRole(t *testing.T) {
	guard := newTestGuard(approvedUser("u1", models.RoleGuest))

	report, err := guard.Check(context.Background(),
		Caller{UserID: "u1", Authenticated: true},
		Capability{AnyOf: []models.RoleName{models.RoleResearcher, models.RoleAdmin}},
		"",
	)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.ElementsMatch(t, []models.RoleName{models.RoleResearcher, models.RoleAdmin}, report.MissingRoles)
}

func TestGuardUnapprovedRoleDoesNotCount(t *testing.T) {
	user := &models.User{ID: "u1", Roles: []models.Role{{Name: models.RoleResearcher, Approved: false}}}
	guard := newTestGuard(user)

	report, err := guard.Check(context.Background(),
		Caller{UserID: "u1", Authenticated: true},
		Capability{AnyOf: []models.RoleName{models.RoleResearcher}},
		"",
	)
	require.NoError(t, err)
	assert.NotNil(t, report)
}

func TestGuardOwnership(t *testing.T) {
	owner := approvedUser("owner", models.RoleResearcher)
	stranger := approvedUser("stranger", models.RoleResearcher)
	admin := approvedUser("admin", models.RoleResearcher, models.RoleAdmin)
	guard := newTestGuard(owner, stranger, admin)

	cap := Capability{
		AnyOf:       []models.RoleName{models.RoleResearcher},
		OwnerScoped: true,
		Elevated:    []models.RoleName{models.RoleAdmin},
	}
	ctx := context.Background()

	t.Run("OwnerAllowed", func(t *testing.T) {
		report, err := guard.Check(ctx, Caller{UserID: "owner", Authenticated: true}, cap, "owner")
		require.NoError(t, err)
		assert.Nil(t, report)
	})

	t.Run("StrangerDenied", func(t *testing.T) {
		report, err := guard.Check(ctx, Caller{UserID: "stranger", Authenticated: true}, cap, "owner")
		require.NoError(t, err)
		require.NotNil(t, report)
		assert.True(t, report.InvalidResource)
	})

	t.Run("AdminBypassesOwnership", func(t *testing.T) {
		report, err := guard.Check(ctx, Caller{UserID: "admin", Authenticated: true}, cap, "owner")
		require.NoError(t, err)
		assert.Nil(t, report)
	})

	t.Run("EmptyOwnerIsInvalidResource", func(t *testing.T) {
		report, err := guard.Check(ctx, Caller{UserID: "owner", Authenticated: true}, cap, "")
		require.NoError(t, err)
		require.NotNil(t, report)
		assert.True(t, report.InvalidResource)
	})

	t.Run("NoElevatedRolesMeansNoBypass", func(t *testing.T) {
		bare := Capability{OwnerScoped: true}
		report, err := guard.Check(ctx, Caller{UserID: "admin", Authenticated: true}, bare, "owner")
		require.NoError(t, err)
		assert.NotNil(t, report)
	})
}

func TestGuardRunPassesResultThrough(t *testing.T) {
	guard := newTestGuard(approvedUser("u1", models.RoleMember))

	report, err := guard.Run(context.Background(),
		Caller{UserID: "u1", Authenticated: true},
		Capability{AnyOf: []models.RoleName{models.RoleMember}},
		"",
		func(context.Context) error { return assert.AnError },
	)
	require.Nil(t, report)
	assert.Equal(t, assert.AnError, err)
}
