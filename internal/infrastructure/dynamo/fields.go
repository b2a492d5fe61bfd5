package dynamo

// DynamoDB attribute names used in key, condition and filter expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID            = "user_id"
	fieldVersion           = "version"
	fieldVerified          = "verified"
	fieldName              = "name"
	fieldSettings          = "settings"
	fieldTimezone          = "timezone"
	fieldNotificationTimes = "notification_times"
	fieldPushSubscription  = "push_subscription"
	fieldToken             = "token"
)
