package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEnable         = "enable"
	fieldEmail          = "email"
	fieldEmailConfirmed = "email_confirmed"
	fieldPasswordHash   = "password_hash"
	fieldStatus         = "status"
	fieldAttempts       = "attempts"
	fieldUpdatedAt      = "updated_at"
)
