package models

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&Account{},
		&Profile{},
		&BloodBank{},
		&BloodRequest{},
		&InventoryRecord{},
		&InventoryAdjustment{},
		&Notification{},
		&Donation{},
	}
}
