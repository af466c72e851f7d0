package config

// NotifyConfig selects and configures the sinks the confirmation consumer
// fans out to. Every sink is optional.
type NotifyConfig struct {
	MailProvider string // log | smtp | resend
	MailFrom     string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
	ResendAPIKey string
	ResendURL    string

	TelegramToken  string
	TelegramChatID int64

	SheetsCredentialsFile string
	SheetsSpreadsheetID   string
	SheetsRange           string
}

// LoadNotifyConfig reads mail, telegram and spreadsheet settings.
func LoadNotifyConfig() NotifyConfig {
	return NotifyConfig{
		MailProvider: envStr("MAIL_PROVIDER", "log"),
		MailFrom:     envStr("EMAIL_FROM", "Registrations <no-reply@example.com>"),
		SMTPHost:     envStr("SMTP_HOST", ""),
		SMTPPort:     envInt("SMTP_PORT", 587),
		SMTPUser:     envStr("SMTP_USER", ""),
		SMTPPass:     envStr("SMTP_PASS", ""),
		ResendAPIKey: envStr("RESEND_API_KEY", ""),
		ResendURL:    envStr("RESEND_API_URL", ""),

		TelegramToken:  envStr("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: envInt64("TELEGRAM_ADMIN_CHAT_ID", 0),

		SheetsCredentialsFile: envStr("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		SheetsSpreadsheetID:   envStr("SHEETS_SPREADSHEET_ID", ""),
		SheetsRange:           envStr("SHEETS_RANGE", "Registrations!A:F"),
	}
}
