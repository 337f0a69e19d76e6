package validation

import (
	"math"
	"regexp"
	"time"

	"fatura/internal/core"
)

var (
	cpfPattern        = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$|^\d{11}$`)
	endNumbersPattern = regexp.MustCompile(`^\d{4}$`)
)

// PurchaseDateLayouts are the accepted purchaseDateTime formats.
var PurchaseDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// ParsePurchaseDate parses a purchaseDateTime value.
func ParsePurchaseDate(value string) (time.Time, error) {
	return parseTime(value, PurchaseDateLayouts)
}

var (
	SignIn = NewSchema(
		F("username", Required(), MinLength(3)),
		F("password", Required(), MinLength(6)),
	)

	SignUp = NewSchema(
		F("doc", Required(), Pattern(cpfPattern, MsgInvalidCPF)),
		F("name", Required(), MinLength(3)),
		F("username", Required(), MinLength(3)),
		F("email", Required(), Email()),
		F("password", Required(), MinLength(6)),
		F("confirmPassword", Required(), EqualsField("password", MsgPasswordMatch)),
	)

	CreditCard = NewSchema(
		F("bank", Required(), MinLength(2)),
		F("endNumbers", Required(), Pattern(endNumbersPattern, MsgEndNumbers)),
		F("nickname", Required(), MinLength(2)),
		F("dueDate", Required(), IntRange(1, 31, MsgDayRange)),
		F("billingPeriodStart", Required(), IntRange(1, 31, MsgDayRange)),
		F("billingPeriodEnd", Required(), IntRange(1, 31, MsgDayRange)),
		F("totalLimit", Required(), PositiveAmount(MsgTotalLimit)),
		F("estimateLimitForinvoices", NonNegativeAmount(MsgNegative)),
	)

	Purchase = NewSchema(
		F("descricao", Required(), MaxLength(core.MaxDescriptionLength)),
		F("creditCardId", Required(), IntRange(1, math.MaxInt32, MsgInvalidFormat)),
		F("totalInstallments", Required(), IntRange(1, core.MaxInstallments, MsgInstallments)),
		F("category", Required(), MaxLength(50)),
		F("purchaseDateTime", Required(), DateLayout(PurchaseDateLayouts...)),
		F("value", Required(), PositiveAmount(MsgValue)),
	)

	EstimateLimit = NewSchema(
		F("estimateLimit", Required(), NonNegativeAmount(MsgNegative)),
	)
)
