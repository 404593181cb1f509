package identity_test

import (
	"errors"
	"testing"

	"github.com/MrEthical07/identity"
	"github.com/MrEthical07/identity/password"
)

func strPtr(s string) *string { return &s }

func TestMe(t *testing.T) {
	env := newTestEnv(t, nil)
	account := env.register(t, "me@example.com", identity.RoleDriver)
	res := env.login(t, "me@example.com")

	view, err := env.engine.Me(withIP("10.0.0.2"), res.Token)
	if err != nil {
		t.Fatal(err)
	}
	if view.ID != account.ID || view.Role != identity.RoleDriver || !view.Active {
		t.Fatalf("unexpected view: %+v", view)
	}

	if _, err := env.engine.Me(withIP("10.0.0.2"), "bogus"); !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "me@example.com", "")
	res := env.login(t, "me@example.com")
	ctx := withIP("10.0.0.2")

	view, err := env.engine.UpdateProfile(ctx, res.Token, identity.ProfileUpdate{
		FirstName: strPtr("  Grace "),
		Phone:     strPtr("+44 7700 900123"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if view.FirstName != "Grace" || view.LastName != "User" || view.Phone != "+447700900123" {
		t.Fatalf("unexpected view: %+v", view)
	}

	if _, err := env.engine.UpdateProfile(ctx, res.Token, identity.ProfileUpdate{}); !errors.Is(err, identity.ErrValidation) {
		t.Fatalf("empty update: %v", err)
	}
	if _, err := env.engine.UpdateProfile(ctx, res.Token, identity.ProfileUpdate{LastName: strPtr("")}); !errors.Is(err, identity.ErrValidation) {
		t.Fatalf("blank last name: %v", err)
	}

	env.register(t, "other@example.com", "")
	other := env.login(t, "other@example.com")
	_, err = env.engine.UpdateProfile(ctx, other.Token, identity.ProfileUpdate{Phone: strPtr("+447700900123")})
	if !errors.Is(err, identity.ErrConflict) {
		t.Fatalf("duplicate phone: %v", err)
	}
}

func TestSetAccountActive(t *testing.T) {
	env := newTestEnv(t, nil)
	hasher, err := password.NewBcrypt(10)
	if err != nil {
		t.Fatal(err)
	}
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatal(err)
	}
	env.seedAdmin(t, hash)
	admin := env.login(t, "admin@example.com")

	rider := env.register(t, "rider@example.com", "")
	riderLogin := env.login(t, "rider@example.com")
	ctx := withIP("10.0.0.9")

	err = env.engine.SetAccountActive(ctx, riderLogin.Token, rider.ID, false)
	if !errors.Is(err, identity.ErrForbidden) {
		t.Fatalf("rider deactivating: %v", err)
	}
	if identity.KindOf(err).Status() != 403 {
		t.Fatalf("status = %d", identity.KindOf(err).Status())
	}

	if err := env.engine.SetAccountActive(ctx, admin.Token, rider.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := env.engine.VerifyToken(ctx, riderLogin.Token); !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("deactivated account token still valid: %v", err)
	}
	if _, err := env.engine.Login(ctx, "rider@example.com", testPassword); err != identity.ErrInvalidCredentials {
		t.Fatalf("deactivated login: %v", err)
	}

	if err := env.engine.SetAccountActive(ctx, admin.Token, rider.ID, true); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	env.login(t, "rider@example.com")

	err = env.engine.SetAccountActive(ctx, admin.Token, "missing", false)
	if !errors.Is(err, identity.ErrAccountNotFound) || identity.KindOf(err) != identity.KindNotFound {
		t.Fatalf("unknown account: %v", err)
	}
}
