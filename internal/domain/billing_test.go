package domain

import (
	"testing"

	"github.com/google/uuid"
)

func fullProfileUser() User {
	return User{
		ID:                   uuid.New(),
		Name:                 "Maria Silva",
		PublicName:           "Maria",
		Email:                "maria@example.com",
		CPF:                  "123.456.789-09",
		AccountType:          AccountTypeIndividual,
		CountryName:          "Brasil",
		AddressStreet:        "Rua Augusta",
		AddressNumber:        "1500",
		AddressComplement:    "ap 32",
		AddressNeighbourhood: "Consolação",
		AddressZipCode:       "01304-001",
		AddressCity:          "São Paulo",
		AddressState:         "SP",
		PhoneNumber:          "11 99999-0000",
	}
}

func TestSnapshotBillingFromUser_OverwritesUnconditionally(t *testing.T) {
	user := fullProfileUser()
	contribution := Contribution{
		CountryName:   "Portugal",
		AddressStreet: "old street",
		PayerDocument: "old document",
		PayerName:     "old name",
		PayerEmail:    "old@example.com",
	}

	SnapshotBillingFromUser(&contribution, user)

	if contribution.CountryName != user.CountryName {
		t.Fatalf("expected country overwritten, got %q", contribution.CountryName)
	}
	if contribution.AddressStreet != user.AddressStreet {
		t.Fatalf("expected street overwritten, got %q", contribution.AddressStreet)
	}
	if contribution.AddressPhoneNumber != user.PhoneNumber {
		t.Fatalf("expected phone overwritten, got %q", contribution.AddressPhoneNumber)
	}
	if contribution.PayerDocument != user.CPF {
		t.Fatalf("expected payer document from user cpf, got %q", contribution.PayerDocument)
	}
	if contribution.PayerName != user.Name || contribution.PayerEmail != user.Email {
		t.Fatalf("expected payer name/email from user, got %q/%q", contribution.PayerName, contribution.PayerEmail)
	}
}

func TestSnapshotBillingFromUser_Idempotent(t *testing.T) {
	user := fullProfileUser()
	var once, twice Contribution

	SnapshotBillingFromUser(&once, user)
	SnapshotBillingFromUser(&twice, user)
	SnapshotBillingFromUser(&twice, user)

	if once != twice {
		t.Fatalf("expected repeated snapshot to be a no-op, got %+v vs %+v", once, twice)
	}
}

func TestMergeBillingIntoUser_PrefersSnapshotWhenPresent(t *testing.T) {
	user := fullProfileUser()
	contribution := Contribution{
		CountryName:        "Argentina",
		AddressStreet:      "Av. Corrientes",
		AddressCity:        "Buenos Aires",
		AddressPhoneNumber: "54 11 5555-0000",
	}

	update := MergeBillingIntoUser(contribution, user)

	if update.CountryName != "Argentina" {
		t.Fatalf("expected snapshot country preferred, got %q", update.CountryName)
	}
	if update.AddressStreet != "Av. Corrientes" {
		t.Fatalf("expected snapshot street preferred, got %q", update.AddressStreet)
	}
	if update.PhoneNumber != "54 11 5555-0000" {
		t.Fatalf("expected snapshot phone preferred, got %q", update.PhoneNumber)
	}
	// Fields the snapshot never captured keep the profile's values.
	if update.AddressNumber != user.AddressNumber {
		t.Fatalf("expected profile number kept, got %q", update.AddressNumber)
	}
	if update.AddressZipCode != user.AddressZipCode {
		t.Fatalf("expected profile zip kept, got %q", update.AddressZipCode)
	}
}

func TestMergeBillingIntoUser_NeverErasesProfileFields(t *testing.T) {
	user := fullProfileUser()

	update := MergeBillingIntoUser(Contribution{}, user)

	if update.CountryName != user.CountryName ||
		update.AddressStreet != user.AddressStreet ||
		update.AddressNumber != user.AddressNumber ||
		update.AddressComplement != user.AddressComplement ||
		update.AddressNeighbourhood != user.AddressNeighbourhood ||
		update.AddressZipCode != user.AddressZipCode ||
		update.AddressCity != user.AddressCity ||
		update.AddressState != user.AddressState ||
		update.PhoneNumber != user.PhoneNumber ||
		update.CPF != user.CPF ||
		update.Name != user.Name ||
		update.PublicName != user.PublicName {
		t.Fatalf("empty snapshot must not erase profile fields, got %+v", update)
	}
}

func TestMergeBillingIntoUser_AccountType(t *testing.T) {
	tests := []struct {
		name          string
		userCPF       string
		userType      string
		payerDocument string
		want          string
	}{
		{
			name:     "existing cpf keeps account type",
			userCPF:  "123.456.789-09",
			userType: AccountTypeOrganization,
			want:     AccountTypeOrganization,
		},
		{
			name:          "long payer document infers organization",
			payerDocument: "12.345.678/0001-95",
			want:          AccountTypeOrganization,
		},
		{
			name:          "fourteen characters or fewer infers individual",
			payerDocument: "12345678909",
			want:          AccountTypeIndividual,
		},
		{
			name: "no document at all defaults to individual",
			want: AccountTypeIndividual,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := User{CPF: tt.userCPF, AccountType: tt.userType}
			contribution := Contribution{PayerDocument: tt.payerDocument}

			update := MergeBillingIntoUser(contribution, user)
			if update.AccountType != tt.want {
				t.Fatalf("expected account type %q, got %q", tt.want, update.AccountType)
			}
		})
	}
}

func TestMergeBillingIntoUser_DisplayNameChain(t *testing.T) {
	tests := []struct {
		name           string
		publicName     string
		userName       string
		payerName      string
		wantName       string
		wantPublicName string
	}{
		{
			name:           "public name wins",
			publicName:     "Zé",
			userName:       "José Santos",
			payerName:      "J. Santos",
			wantName:       "José Santos",
			wantPublicName: "Zé",
		},
		{
			name:           "user name fills public name",
			userName:       "José Santos",
			payerName:      "J. Santos",
			wantName:       "José Santos",
			wantPublicName: "José Santos",
		},
		{
			name:           "payer name is last resort for both",
			payerName:      "J. Santos",
			wantName:       "J. Santos",
			wantPublicName: "J. Santos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := User{Name: tt.userName, PublicName: tt.publicName}
			contribution := Contribution{PayerName: tt.payerName}

			update := MergeBillingIntoUser(contribution, user)
			if update.Name != tt.wantName {
				t.Fatalf("expected name %q, got %q", tt.wantName, update.Name)
			}
			if update.PublicName != tt.wantPublicName {
				t.Fatalf("expected public name %q, got %q", tt.wantPublicName, update.PublicName)
			}
		})
	}
}

func TestMergeBillingIntoUser_PureAndRepeatable(t *testing.T) {
	user := fullProfileUser()
	contribution := Contribution{CountryName: "Chile", PayerDocument: "98765432100"}

	first := MergeBillingIntoUser(contribution, user)
	second := MergeBillingIntoUser(contribution, user)

	if first != second {
		t.Fatalf("merge must be a pure function of its inputs: %+v vs %+v", first, second)
	}
}
