/**
 * @description
 * Billing reconciliation between a contribution's snapshot and the owning
 * user's live profile. Both directions are explicit field-by-field functions
 * rather than reflection-driven attribute merges, so every rule is visible
 * and independently testable.
 *
 * Directions:
 * - SnapshotBillingFromUser: user profile -> contribution snapshot, an
 *   unconditional overwrite taken at pledge time.
 * - MergeBillingIntoUser: contribution snapshot -> user profile update,
 *   preferring snapshot values only where present. Pure function; the caller
 *   applies the resulting update transactionally.
 */

package domain

// SnapshotBillingFromUser copies the user's current billing profile into the
// contribution's snapshot fields, overwriting unconditionally.
func SnapshotBillingFromUser(c *Contribution, u User) {
	c.CountryName = u.CountryName
	c.AddressStreet = u.AddressStreet
	c.AddressNumber = u.AddressNumber
	c.AddressComplement = u.AddressComplement
	c.AddressNeighbourhood = u.AddressNeighbourhood
	c.AddressZipCode = u.AddressZipCode
	c.AddressCity = u.AddressCity
	c.AddressState = u.AddressState
	c.AddressPhoneNumber = u.PhoneNumber
	c.PayerDocument = u.CPF
	c.PayerName = u.Name
	c.PayerEmail = u.Email
}

// UserBillingUpdate is the full set of profile fields produced by
// MergeBillingIntoUser. The caller persists it as a single update.
type UserBillingUpdate struct {
	AccountType          string
	CountryName          string
	AddressStreet        string
	AddressNumber        string
	AddressComplement    string
	AddressNeighbourhood string
	AddressZipCode       string
	AddressCity          string
	AddressState         string
	PhoneNumber          string
	CPF                  string
	Name                 string
	PublicName           string
}

// MergeBillingIntoUser derives the user's updated billing profile from a
// contribution snapshot. Each field prefers the snapshot value when present,
// keeping the user's existing value otherwise, so an empty snapshot field can
// never erase profile data.
//
// Account type: an existing tax document on file wins; otherwise the type is
// inferred from the payer document's length (formatted CNPJs run longer than
// 14 characters).
func MergeBillingIntoUser(c Contribution, u User) UserBillingUpdate {
	accountType := u.AccountType
	if u.CPF == "" {
		if len(c.PayerDocument) > 14 {
			accountType = AccountTypeOrganization
		} else {
			accountType = AccountTypeIndividual
		}
	}

	name := preferPresent(u.Name, c.PayerName)

	return UserBillingUpdate{
		AccountType:          accountType,
		CountryName:          preferPresent(c.CountryName, u.CountryName),
		AddressStreet:        preferPresent(c.AddressStreet, u.AddressStreet),
		AddressNumber:        preferPresent(c.AddressNumber, u.AddressNumber),
		AddressComplement:    preferPresent(c.AddressComplement, u.AddressComplement),
		AddressNeighbourhood: preferPresent(c.AddressNeighbourhood, u.AddressNeighbourhood),
		AddressZipCode:       preferPresent(c.AddressZipCode, u.AddressZipCode),
		AddressCity:          preferPresent(c.AddressCity, u.AddressCity),
		AddressState:         preferPresent(c.AddressState, u.AddressState),
		PhoneNumber:          preferPresent(c.AddressPhoneNumber, u.PhoneNumber),
		CPF:                  preferPresent(u.CPF, c.PayerDocument),
		Name:                 name,
		PublicName:           preferPresent(u.PublicName, name),
	}
}

// preferPresent returns the first non-empty value.
func preferPresent(first, second string) string {
	if first != "" {
		return first
	}
	return second
}
