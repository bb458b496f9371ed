package runtimeconfig

// Well-known keys
const (
	KeyAccessTokenExpireMinutes = "ACCESS_TOKEN_EXPIRE_MINUTES"

	KeyDelimiter      = "delimiter"
	KeySeparator      = "separator"
	KeyThankYouNote   = "thank_you_note"
	KeyCashLabel      = "cash_label"
	KeyCashlessLabel  = "cashless_label"
	KeyTotalLabel     = "total_label"
	KeyRestLabel      = "rest_label"
	KeyDatetimeFormat = "datetime_format"
)

// FormattingKeys lists the receipt formatting settings in fingerprint order
var FormattingKeys = []string{
	KeyDelimiter,
	KeySeparator,
	KeyThankYouNote,
	KeyCashLabel,
	KeyCashlessLabel,
	KeyTotalLabel,
	KeyRestLabel,
	KeyDatetimeFormat,
}

// Defaults returns the values seeded into an empty store
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		KeyAccessTokenExpireMinutes: 60,
		KeyDelimiter:                "=",
		KeySeparator:                "-",
		KeyThankYouNote:             "Thank you for your purchase!",
		KeyCashLabel:                "Cash",
		KeyCashlessLabel:            "Card",
		KeyTotalLabel:               "TOTAL",
		KeyRestLabel:                "Change",
		KeyDatetimeFormat:           "02.01.2006 15:04",
	}
}
