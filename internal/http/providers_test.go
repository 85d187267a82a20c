package http

import (
	"testing"

	"github.com/dropDatabas3/hellobridge/internal/bridge"
)

func TestCheckedIdentity_RejectsMissingEmail(t *testing.T) {
	// Facebook puede devolver perfiles sin email confirmado; esa identidad
	// no puede entrar al reconciler.
	_, err := checkedIdentity(bridge.ExternalIdentity{
		Provider:       "facebook",
		ProviderUserID: "f-1",
	})
	if err == nil {
		t.Fatal("identity without email must be rejected")
	}

	_, err = checkedIdentity(bridge.ExternalIdentity{
		Provider:       "facebook",
		ProviderUserID: "f-1",
		Email:          "   ",
	})
	if err == nil {
		t.Fatal("whitespace-only email must be rejected")
	}
}

func TestCheckedIdentity_PassesThroughComplete(t *testing.T) {
	in := bridge.ExternalIdentity{
		Provider:       "google",
		ProviderUserID: "g-1",
		Email:          "ana@ejemplo.com",
		GivenNameHint:  "Ana",
		FamilyNameHint: "García",
	}
	out, err := checkedIdentity(in)
	if err != nil {
		t.Fatalf("checkedIdentity err: %v", err)
	}
	if out != in {
		t.Fatalf("identity altered: %+v", out)
	}
}
