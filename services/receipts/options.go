package receipts

import (
	"context"

	"github.com/avillia/receipt-service/internal/runtimeconfig"
	"github.com/avillia/receipt-service/services"
)

// FormattingOptions are the runtime settings that shape a text receipt
type FormattingOptions struct {
	Delimiter      string
	Separator      string
	ThankYouNote   string
	CashLabel      string
	CashlessLabel  string
	TotalLabel     string
	RestLabel      string
	DatetimeFormat string
}

// LoadFormattingOptions reads every formatting key. A missing key is a
// configuration error; there are no fallback defaults.
func LoadFormattingOptions(ctx context.Context, settings runtimeconfig.Provider) (FormattingOptions, error) {
	values, err := runtimeconfig.RequireStrings(ctx, settings, runtimeconfig.FormattingKeys)
	if err != nil {
		if key, ok := runtimeconfig.MissingKey(err); ok {
			return FormattingOptions{}, services.NewConfigurationMissingError(key, err)
		}
		return FormattingOptions{}, services.WrapInternal("failed to read formatting settings", err)
	}

	return FormattingOptions{
		Delimiter:      values[runtimeconfig.KeyDelimiter],
		Separator:      values[runtimeconfig.KeySeparator],
		ThankYouNote:   values[runtimeconfig.KeyThankYouNote],
		CashLabel:      values[runtimeconfig.KeyCashLabel],
		CashlessLabel:  values[runtimeconfig.KeyCashlessLabel],
		TotalLabel:     values[runtimeconfig.KeyTotalLabel],
		RestLabel:      values[runtimeconfig.KeyRestLabel],
		DatetimeFormat: values[runtimeconfig.KeyDatetimeFormat],
	}, nil
}

// Values returns the options in runtimeconfig.FormattingKeys order
func (o FormattingOptions) Values() []string {
	return []string{
		o.Delimiter,
		o.Separator,
		o.ThankYouNote,
		o.CashLabel,
		o.CashlessLabel,
		o.TotalLabel,
		o.RestLabel,
		o.DatetimeFormat,
	}
}
