package trip

import (
	"fmt"
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// formatter renders the money and duration figures quoted in rationales.
type formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

func newFormatter(code string, tag language.Tag) formatter {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.USD
	}
	return formatter{printer: message.NewPrinter(tag), unit: unit}
}

// money renders the absolute amount as symbol and figure with no space,
// using the currency's standard number of decimals.
func (f formatter) money(amount float64) string {
	scale, _ := currency.Standard.Rounding(f.unit)
	symbol := f.printer.Sprint(currency.NarrowSymbol(f.unit))
	return symbol + f.printer.Sprintf(fmt.Sprintf("%%.%df", scale), math.Abs(amount))
}

func (f formatter) hours(h float64) string {
	return f.printer.Sprintf("%.1f h", math.Abs(h))
}

func (f formatter) km(d float64) string {
	return f.printer.Sprintf("%.0f km", d)
}

func (f formatter) sprintf(format string, args ...interface{}) string {
	return f.printer.Sprintf(format, args...)
}
