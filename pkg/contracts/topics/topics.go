package topics

const (
	// Apostas
	WagerCreated  = "house_wager_created"
	WagerResolved = "house_wager_resolved"

	// Treasury
	FeesWithdrawn = "house_fees_withdrawn"
)
