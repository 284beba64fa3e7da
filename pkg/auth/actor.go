package auth

import (
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/google/uuid"
)

// Actor is the authenticated caller as seen by services.
type Actor struct {
	AccountID uuid.UUID
	Role      enums.Role
	BankID    *uuid.UUID
}

// ActorFromClaims lifts verified token claims into an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{AccountID: claims.AccountID, Role: claims.Role, BankID: claims.BankID}
}

// IsBankAdmin reports whether the actor administers some registered bank.
func (a Actor) IsBankAdmin() bool {
	return a.Role == enums.RoleBloodBankAdmin && a.BankID != nil && *a.BankID != uuid.Nil
}

// AdminOf reports whether the actor administers bankID.
func (a Actor) AdminOf(bankID uuid.UUID) bool {
	return a.IsBankAdmin() && *a.BankID == bankID
}
