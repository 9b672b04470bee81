package entity

// NotificationMessage is a rendered report, ready for a webhook.
type NotificationMessage struct {
	Header   string `json:"header"`
	Body     string `json:"body"`
	Footer   string `json:"footer"`
	Color    string `json:"color"`
	ReportID string `json:"report_id"`
}
