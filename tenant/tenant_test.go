package tenant

import (
	"errors"
	"testing"

	"github.com/nhatro/rentledger/id"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"empty", "", false},
		{"mobile national", "0987654321", false},
		{"mobile spaced", "0987 654 321", false},
		{"international", "+84987654321", false},
		{"garbage", "not-a-number", true},
		{"too short", "0987", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPhone) {
					t.Fatalf("got err %v, want ErrInvalidPhone", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.in != "" && got == "" {
				t.Error("expected a formatted number")
			}
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := []Tenant{{ID: id.NewTenantID(), Name: "An"}}
	cp := Clone(orig)
	cp[0].Name = "Bình"
	if orig[0].Name != "An" {
		t.Errorf("clone shares storage with original")
	}
	if Clone(nil) != nil {
		t.Error("Clone(nil) should be nil")
	}
}

func TestNamesAndFind(t *testing.T) {
	a, b := Tenant{ID: id.NewTenantID(), Name: "An"}, Tenant{ID: id.NewTenantID(), Name: "Bình"}
	list := []Tenant{a, b}

	if got := Names(list); got != "An, Bình" {
		t.Errorf("Names: got %q", got)
	}
	if got := Find(list, b.ID); got != 1 {
		t.Errorf("Find: got %d, want 1", got)
	}
	if got := Find(list, id.NewTenantID()); got != -1 {
		t.Errorf("Find missing: got %d, want -1", got)
	}
}
