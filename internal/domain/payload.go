package domain

import "fmt"

// Reply actions offered on every reminder.
const (
	ActionYes = "yes"
	ActionNo  = "no"
)

type ReminderAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

type ReminderData struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Token string `json:"token"`
}

// ReminderPayload is the JSON body pushed to the client. The service worker
// maps "yes" to taken and "no" to skipped and posts the token back.
type ReminderPayload struct {
	Title   string           `json:"title"`
	Body    string           `json:"body"`
	Actions []ReminderAction `json:"actions"`
	Data    ReminderData     `json:"data"`
}

func NewReminderPayload(u *User, e TiffinEntry) ReminderPayload {
	body := "Did you take your tiffin?"
	if u.Settings.MessName != "" {
		body = fmt.Sprintf("Did you take your tiffin from %s?", u.Settings.MessName)
	}
	title := "Time for your tiffin!"
	if u.Name != "" {
		title = fmt.Sprintf("Time for your tiffin, %s!", u.Name)
	}
	return ReminderPayload{
		Title: title,
		Body:  body,
		Actions: []ReminderAction{
			{Action: ActionYes, Title: "✅ Yes"},
			{Action: ActionNo, Title: "❌ No"},
		},
		Data: ReminderData{Date: e.Date, Time: e.Time, Token: e.NotificationToken},
	}
}
