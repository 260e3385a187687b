// Package mailer sends delivery email with the composed artifact attached.
//
// SMTPSender builds messages with github.com/wneessen/go-mail and relays them
// through the configured SMTP host. User-entered bodies are stripped of markup
// with bluemonday before they are used as the plain-text part, and an HTML
// alternative is produced from the sanitized text. Recipient lists accept
// comma-separated RFC 5322 addresses.
package mailer
