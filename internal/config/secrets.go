package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Wallet
	out.Wallet = cfg.Wallet
	redact(&out.Wallet.PrivateKey)
	redact(&out.Wallet.KeyPassword)

	// Ledger
	out.Ledger = cfg.Ledger
	redact(&out.Ledger.DSN)
	redact(&out.Ledger.Password)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// S3
	out.S3 = cfg.S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Notify
	out.Notify = cfg.Notify
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	out.Assets = append([]AssetConfig(nil), cfg.Assets...)
	out.Routers = append([]RouterConfig(nil), cfg.Routers...)
	out.Plan = append([]EntryConfig(nil), cfg.Plan...)
	out.Mocks.Contracts = append([]string(nil), cfg.Mocks.Contracts...)
	out.FlashLoan.Routers = append([]string(nil), cfg.FlashLoan.Routers...)
	out.Notify.Events = append([]string(nil), cfg.Notify.Events...)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
