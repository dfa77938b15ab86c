package domain_test

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/storeward/storeward/pkg/domain"
)

func TestStoreStatus_CanTransitTo(t *testing.T) {
	all := []domain.StoreStatus{
		domain.Provisioning, domain.Ready, domain.Failed,
		domain.Deleting, domain.Deleted,
	}

	edges := map[domain.StoreStatus][]domain.StoreStatus{
		domain.Provisioning: {domain.Ready, domain.Failed},
		domain.Ready:        {domain.Deleting},
		domain.Failed:       {domain.Deleting},
		domain.Deleting:     {domain.Deleted},
		domain.Deleted:      {},
	}

	for from, allowed := range edges {
		for _, to := range all {
			shouldAllow := false
			for _, a := range allowed {
				if a == to {
					shouldAllow = true
				}
			}
			if got := from.CanTransitTo(to); got != shouldAllow {
				t.Errorf(
					"%s -> %s: (actual, expected) = (%v, %v)",
					from, to, got, shouldAllow,
				)
			}
		}
	}
}

func TestAsStoreStatus(t *testing.T) {
	for _, expr := range []string{"PROVISIONING", "READY", "FAILED", "DELETING", "DELETED"} {
		status, err := domain.AsStoreStatus(expr)
		if err != nil {
			t.Errorf("unexpected error for %s: %+v", expr, err)
		}
		if status.String() != expr {
			t.Errorf("round trip broken: (actual, expected) = (%s, %s)", status, expr)
		}
	}

	if _, err := domain.AsStoreStatus("ready"); err == nil {
		t.Error("statuses are case sensitive")
	}
	if _, err := domain.AsStoreStatus("UNKNOWN"); err == nil {
		t.Error("unknown statuses should be rejected")
	}
}

func TestAsStoreEngine(t *testing.T) {
	for expr, expected := range map[string]domain.StoreEngine{
		"woocommerce": domain.WooCommerce,
		"medusa":      domain.Medusa,
	} {
		engine, err := domain.AsStoreEngine(expr)
		if err != nil {
			t.Errorf("unexpected error for %s: %+v", expr, err)
		}
		if engine != expected {
			t.Errorf("engine does not match: (actual, expected) = (%s, %s)", engine, expected)
		}
	}

	_, err := domain.AsStoreEngine("shopify")
	if !errors.Is(err, domain.ErrInvalidStore) {
		t.Errorf("unexpected error: %+v", err)
	}
}

func TestValidateStoreName(t *testing.T) {
	for _, name := range []string{
		"abc",
		"sneaker-hub",
		"a-1-b-2",
		"000",
		strings.Repeat("a", 50),
	} {
		if err := domain.ValidateStoreName(name); err != nil {
			t.Errorf("%q should be a valid name: %+v", name, err)
		}
	}

	for _, name := range []string{
		"",
		"ab",
		"Sneaker-Hub",
		"sneaker hub",
		"sneaker_hub",
		"-sneaker",
		"sneaker-",
		"sneaker.hub",
		strings.Repeat("a", 51),
	} {
		err := domain.ValidateStoreName(name)
		if !errors.Is(err, domain.ErrInvalidStore) {
			t.Errorf("%q should be rejected, got: %+v", name, err)
		}
	}
}

func TestNewStoreId(t *testing.T) {
	pattern := regexp.MustCompile(`^sneaker-hub-[0-9a-f]{8}$`)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := domain.NewStoreId("sneaker-hub")
		if !pattern.MatchString(id) {
			t.Fatalf("unexpected id shape: %s", id)
		}
		if seen[id] {
			t.Fatalf("id collided: %s", id)
		}
		seen[id] = true
	}
}

func TestIdentityDerivation(t *testing.T) {
	if got := domain.NamespaceOf("sneaker-hub-1a2b3c4d"); got != "store-sneaker-hub-1a2b3c4d" {
		t.Errorf("unexpected namespace: %s", got)
	}
	if got := domain.DomainOf("sneaker-hub", "stores.example.com"); got != "sneaker-hub.stores.example.com" {
		t.Errorf("unexpected domain: %s", got)
	}
}

func TestNewDBCredentials(t *testing.T) {
	a := domain.NewDBCredentials()
	b := domain.NewDBCredentials()

	if a.Name != "store" || a.Username != "store" {
		t.Errorf("unexpected static fields: %+v", a)
	}
	if len(a.Password) != 16 || len(a.RootPassword) != 16 {
		t.Errorf("passwords should be 16 hex chars: %+v", a)
	}
	if a.Password == b.Password || a.RootPassword == b.RootPassword {
		t.Error("credentials should be random per store")
	}
	if a.Password == a.RootPassword {
		t.Error("user and root passwords should differ")
	}
}
